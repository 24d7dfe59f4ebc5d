package repository

import "database/sql"

type Repo struct {
	db *sql.DB
}

type Settings struct {
	GuildID               string
	DefaultVolume         int
	LoopMode              string // none/track/queue
	Autoplay              bool
	SecondsWaitAfterEmpty int
	AutoAnnounceNext      bool
	QueuePageSize         int
	LeaveIfNoListeners    bool
}

type Favorite struct {
	ID      int64
	GuildID string
	Author  string
	Name    string
	Query   string
}
