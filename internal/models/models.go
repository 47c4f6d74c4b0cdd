package models

import (
	"bytes"
	"encoding/json"
	"time"
)

// User is the identity the API reports for the current session.
type User struct {
	ID         string    `json:"_id"`
	Username   string    `json:"username"`
	FullName   string    `json:"fullName,omitempty"`
	Email      string    `json:"email,omitempty"`
	Avatar     string    `json:"avatar,omitempty"`
	CoverImage string    `json:"coverImage,omitempty"`
	CreatedAt  time.Time `json:"createdAt,omitzero"`
	UpdatedAt  time.Time `json:"updatedAt,omitzero"`
}

// DisplayName prefers the full name and falls back to the username.
func (u *User) DisplayName() string {
	if u == nil {
		return ""
	}
	if u.FullName != "" {
		return u.FullName
	}
	return u.Username
}

// Owner summarizes the uploader of a video.
type Owner struct {
	ID       string `json:"_id"`
	Username string `json:"username,omitempty"`
	FullName string `json:"fullName,omitempty"`
	Avatar   string `json:"avatar,omitempty"`
}

// UnmarshalJSON accepts either a populated owner object or a bare owner ID string.
func (o *Owner) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}

	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &o.ID)
	}

	type owner Owner
	var decoded owner
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}
	*o = Owner(decoded)
	return nil
}

// Video is a catalog entry or full video record.
type Video struct {
	ID           string    `json:"_id"`
	Title        string    `json:"title"`
	Description  string    `json:"description,omitempty"`
	VideoFile    string    `json:"videoFile,omitempty"`
	Thumbnail    string    `json:"thumbnail,omitempty"`
	Duration     float64   `json:"duration,omitempty"`
	Views        int64     `json:"views"`
	Likes        int64     `json:"likesCount,omitempty"`
	IsPublished  bool      `json:"isPublished,omitempty"`
	Owner        *Owner    `json:"owner,omitempty"`
	OwnerDetails *Owner    `json:"ownerDetails,omitempty"`
	CreatedAt    time.Time `json:"createdAt,omitzero"`
	UpdatedAt    time.Time `json:"updatedAt,omitzero"`
}

// Uploader returns the best available owner summary; aggregated catalog rows carry ownerDetails while detail records populate owner.
func (v *Video) Uploader() Owner {
	if v.OwnerDetails != nil && v.OwnerDetails.Username != "" {
		return *v.OwnerDetails
	}
	if v.Owner != nil {
		return *v.Owner
	}
	if v.OwnerDetails != nil {
		return *v.OwnerDetails
	}
	return Owner{}
}

// VideoPage is one page of the catalog.
type VideoPage struct {
	Videos     []Video
	Page       int
	Limit      int
	TotalDocs  int
	TotalPages int
	HasNext    bool
	HasPrev    bool
}

// Empty reports whether the page holds no videos.
func (p *VideoPage) Empty() bool {
	return p == nil || len(p.Videos) == 0
}
