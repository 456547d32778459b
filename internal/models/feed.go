package models

import (
	"time"

	"github.com/google/uuid"
)

// ThreadType classifies an activity feed thread
type ThreadType string

const (
	ThreadConversation ThreadType = "Conversation"
	ThreadTask         ThreadType = "Task"
	ThreadAnnouncement ThreadType = "Announcement"
)

// Thread is a conversation about an entity or one of its fields
type Thread struct {
	ID         uuid.UUID  `json:"id"`
	Type       ThreadType `json:"type"`
	About      string     `json:"about"`
	Message    string     `json:"message"`
	CreatedBy  string     `json:"createdBy"`
	Resolved   bool       `json:"resolved"`
	Posts      []Post     `json:"posts"`
	PostsCount int        `json:"postsCount"`
	ThreadTs   time.Time  `json:"threadTs"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// Post is a reply inside a thread
type Post struct {
	ID      uuid.UUID `json:"id"`
	Message string    `json:"message"`
	From    string    `json:"from"`
	PostTs  time.Time `json:"postTs"`
}

// CreateThread is the payload for opening a thread
type CreateThread struct {
	About   string     `json:"about" validate:"required,startswith=<#E::"`
	Message string     `json:"message" validate:"required,max=65536"`
	Type    ThreadType `json:"type,omitempty" validate:"omitempty,thread_type"`
}

// CreatePost is the payload for replying to a thread
type CreatePost struct {
	Message string `json:"message" validate:"required,max=65536"`
}
