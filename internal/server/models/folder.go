package models

import "time"

// Folder groups files for a principal. Folders form a tree via ParentID
// (nil means the root level). Deletion is blocked while a folder still has
// children or files.
type Folder struct {
	ID        string
	OwnerID   string
	ParentID  *string
	Name      string
	CreatedAt time.Time
}
