package entity

import "time"

// AudioFile is the metadata row for one converted document.
type AudioFile struct {
	ID         string
	OwnerEmail string
	Filename   string
	ObjectPath string
	URL        string
	CreatedAt  time.Time
}
