package domain

// AuthorProfile is the lightweight projection of a member shown next to posts and comments.
type AuthorProfile struct {
	ID          string
	DisplayName string
	AvatarRef   string
}

// RemovedAuthor replaces profiles that no longer exist (deleted or soft-deleted members).
func RemovedAuthor() AuthorProfile {
	return AuthorProfile{DisplayName: "removed user"}
}

// ProfileOrPlaceholder picks the profile of authorID or the placeholder when it is absent.
func ProfileOrPlaceholder(profiles map[string]AuthorProfile, authorID string) AuthorProfile {
	if p, ok := profiles[authorID]; ok {
		return p
	}
	return RemovedAuthor()
}
