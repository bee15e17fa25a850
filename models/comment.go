package models

import "time"

// Comment is a reply on a challenge. Likes is maintained with atomic SQL updates and never drops below zero.
type Comment struct {
	ID          uint         `gorm:"primaryKey" json:"id"`
	Content     string       `gorm:"type:text;not null" json:"content"`
	Likes       int          `gorm:"not null;default:0" json:"likes"`
	UserID      uint         `gorm:"index;not null" json:"userId"`
	ChallengeID uint         `gorm:"index;not null" json:"challengeId"`
	CreatedAt   time.Time    `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time    `json:"updatedAt"`
	Images      []CommentImg `gorm:"foreignKey:CommentID" json:"-"`
}

// CommentImg is a stored image attached to a comment.
type CommentImg struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	ImgName    string    `gorm:"size:255;not null" json:"imgName"` // storage key
	OriImgName string    `gorm:"size:255" json:"oriImgName"`
	ImgURL     string    `gorm:"size:1024;not null" json:"imgUrl"`
	CommentID  uint      `gorm:"index;not null" json:"commentId"`
	CreatedAt  time.Time `json:"createdAt"`
}

// CommentLike records that a user liked a comment; the pair is unique.
type CommentLike struct {
	ID        uint `gorm:"primaryKey"`
	CommentID uint `gorm:"not null;uniqueIndex:idx_comment_like_user"`
	UserID    uint `gorm:"not null;uniqueIndex:idx_comment_like_user;index"`
	CreatedAt time.Time
}

// ImageURLs returns the URLs of the attached images, never nil.
func (c *Comment) ImageURLs() []string {
	urls := make([]string, 0, len(c.Images))
	for _, img := range c.Images {
		urls = append(urls, img.ImgURL)
	}
	return urls
}
