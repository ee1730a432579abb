package service

import "errors"

var (
	// ErrUpstreamUnavailable is returned when the embedding oracle or the vector index fails
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrNarrativeGeneration is returned when the narrative oracle fails in narrative mode
	ErrNarrativeGeneration = errors.New("narrative generation failed")
	// ErrOracleDisabled is returned by the OpenAI client when no API key is configured
	ErrOracleDisabled = errors.New("language oracle is not enabled (missing API key)")
	// ErrValidation is returned for rejected admin input
	ErrValidation = errors.New("validation failed")
)
