package model

import "time"

type SourceType string

const (
	SourceYouTube SourceType = "youtube"
	SourceBlog    SourceType = "blog"
	SourcePDF     SourceType = "pdf"
	SourceText    SourceType = "text"
)

// ContentSource is the raw material a set of posts was generated from.
type ContentSource struct {
	ID              int64      `json:"id"`
	UserID          string     `json:"user_id"`
	SourceType      SourceType `json:"source_type"`
	URL             string     `json:"url,omitempty"`
	Title           string     `json:"title"`
	RawText         string     `json:"-"`
	IsProcessed     bool       `json:"is_processed"`
	ProcessingError *string    `json:"processing_error,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

// BrandVoice is a user-defined writing style fed to the generator.
type BrandVoice struct {
	ID              int64     `json:"id"`
	UserID          string    `json:"user_id"`
	Name            string    `json:"name"`
	Description     string    `json:"description"`
	SamplePosts     []string  `json:"sample_posts"`
	GeneratedPrompt string    `json:"generated_prompt"`
	IsDefault       bool      `json:"is_default"`
	CreatedAt       time.Time `json:"created_at"`
}

// Generated is the structured output of the AI bridge.
type Generated struct {
	Hook        string   `json:"hook"`
	Content     string   `json:"content"`
	Hashtags    []string `json:"hashtags"`
	ThreadPosts []string `json:"thread_posts"`
}
