package models

// Entity names one of the synced record types.
type Entity string

const (
	EntityChannel Entity = "channel"
	EntityVideo   Entity = "video"
	EntityComment Entity = "comment"
)

const (
	IndexChannels = "channels"
	IndexVideos   = "videos"
	IndexComments = "comments"
)
