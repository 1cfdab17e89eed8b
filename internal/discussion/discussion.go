// Package discussion implements the ordered-collection operations behind
// story likes, comments and replies. Every function returns new slices and
// leaves its inputs untouched.
package discussion

import (
	"errors"

	"github.com/noah-isme/storyninja-api/internal/models"
)

var (
	ErrCommentNotFound = errors.New("comment not found")
	ErrReplyNotFound   = errors.New("reply not found")
)

// ToggleLike removes userID when present, otherwise appends it.
func ToggleLike(likes []string, userID string) ([]string, bool) {
	out := make([]string, 0, len(likes)+1)
	removed := false
	for _, id := range likes {
		if id == userID {
			removed = true
			continue
		}
		out = append(out, id)
	}
	if removed {
		return out, false
	}
	return append(out, userID), true
}

// AppendComment adds c at the end of the discussion.
func AppendComment(comments []models.Comment, c models.Comment) []models.Comment {
	out := make([]models.Comment, 0, len(comments)+1)
	out = append(out, comments...)
	return append(out, normalizeComment(c))
}

// FindComment returns the index of the comment with id, or -1.
func FindComment(comments []models.Comment, id string) int {
	for i := range comments {
		if comments[i].ID == id {
			return i
		}
	}
	return -1
}

// RemoveComment drops the comment with id together with its replies.
func RemoveComment(comments []models.Comment, id string) ([]models.Comment, error) {
	idx := FindComment(comments, id)
	if idx < 0 {
		return nil, ErrCommentNotFound
	}
	out := make([]models.Comment, 0, len(comments)-1)
	out = append(out, comments[:idx]...)
	return append(out, comments[idx+1:]...), nil
}

// ToggleCommentLike toggles userID on the comment with id.
func ToggleCommentLike(comments []models.Comment, commentID, userID string) ([]models.Comment, bool, error) {
	idx := FindComment(comments, commentID)
	if idx < 0 {
		return nil, false, ErrCommentNotFound
	}
	out := cloneComments(comments)
	var liked bool
	out[idx].Likes, liked = ToggleLike(out[idx].Likes, userID)
	return out, liked, nil
}

// AppendReply adds r to the end of the comment's replies.
func AppendReply(comments []models.Comment, commentID string, r models.Reply) ([]models.Comment, error) {
	idx := FindComment(comments, commentID)
	if idx < 0 {
		return nil, ErrCommentNotFound
	}
	out := cloneComments(comments)
	replies := make([]models.Reply, 0, len(out[idx].Replies)+1)
	replies = append(replies, out[idx].Replies...)
	if r.Likes == nil {
		r.Likes = []string{}
	}
	out[idx].Replies = append(replies, r)
	return out, nil
}

// FindReply returns the comment and reply indexes, or -1 for whichever is missing.
func FindReply(comments []models.Comment, commentID, replyID string) (int, int) {
	ci := FindComment(comments, commentID)
	if ci < 0 {
		return -1, -1
	}
	for ri := range comments[ci].Replies {
		if comments[ci].Replies[ri].ID == replyID {
			return ci, ri
		}
	}
	return ci, -1
}

// RemoveReply filters the reply out of its parent comment.
func RemoveReply(comments []models.Comment, commentID, replyID string) ([]models.Comment, error) {
	ci, ri := FindReply(comments, commentID, replyID)
	if ci < 0 {
		return nil, ErrCommentNotFound
	}
	if ri < 0 {
		return nil, ErrReplyNotFound
	}
	out := cloneComments(comments)
	replies := out[ci].Replies
	kept := make([]models.Reply, 0, len(replies)-1)
	kept = append(kept, replies[:ri]...)
	out[ci].Replies = append(kept, replies[ri+1:]...)
	return out, nil
}

// ToggleReplyLike toggles userID on a reply.
func ToggleReplyLike(comments []models.Comment, commentID, replyID, userID string) ([]models.Comment, bool, error) {
	ci, ri := FindReply(comments, commentID, replyID)
	if ci < 0 {
		return nil, false, ErrCommentNotFound
	}
	if ri < 0 {
		return nil, false, ErrReplyNotFound
	}
	out := cloneComments(comments)
	var liked bool
	out[ci].Replies[ri].Likes, liked = ToggleLike(out[ci].Replies[ri].Likes, userID)
	return out, liked, nil
}

// PullUser strips userID from every comment and reply like list. The second
// result reports whether anything changed.
func PullUser(comments []models.Comment, userID string) ([]models.Comment, bool) {
	out := cloneComments(comments)
	changed := false
	for ci := range out {
		if kept, ok := without(out[ci].Likes, userID); ok {
			out[ci].Likes = kept
			changed = true
		}
		for ri := range out[ci].Replies {
			if kept, ok := without(out[ci].Replies[ri].Likes, userID); ok {
				out[ci].Replies[ri].Likes = kept
				changed = true
			}
		}
	}
	return out, changed
}

// CanDelete reports whether the actor may delete content written by authorID.
func CanDelete(actorID string, actorRole models.UserRole, authorID string) bool {
	return actorRole == models.RoleAdmin || (actorID != "" && actorID == authorID)
}

func without(likes []string, userID string) ([]string, bool) {
	for i, id := range likes {
		if id == userID {
			out := make([]string, 0, len(likes)-1)
			out = append(out, likes[:i]...)
			rest, _ := without(likes[i+1:], userID)
			return append(out, rest...), true
		}
	}
	return likes, false
}

func normalizeComment(c models.Comment) models.Comment {
	if c.Likes == nil {
		c.Likes = []string{}
	}
	if c.Replies == nil {
		c.Replies = []models.Reply{}
	}
	return c
}

func cloneComments(comments []models.Comment) []models.Comment {
	out := make([]models.Comment, len(comments))
	for i, c := range comments {
		c.Likes = append([]string(nil), c.Likes...)
		replies := make([]models.Reply, len(c.Replies))
		for j, r := range c.Replies {
			r.Likes = append([]string(nil), r.Likes...)
			replies[j] = r
		}
		c.Replies = replies
		out[i] = c
	}
	return out
}
