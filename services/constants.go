package services

const (
	MinDescriptionLength = 1
	MaxDescriptionLength = 100
	MinGroupNameLength   = 2
	MaxGroupNameLength   = 50
	MaxNoteLength        = 200
)

const (
	GeneralRateLimit = 500
	AIRateLimit      = 8
)
