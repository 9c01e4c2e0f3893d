package services

import "errors"

var (
	ErrEmptyQuestion = errors.New("question is empty")
	ErrEmbedding     = errors.New("embedding failed")
	ErrSearch        = errors.New("vector search failed")
	ErrGeneration    = errors.New("answer generation failed")
)
