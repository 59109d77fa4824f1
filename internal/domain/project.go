package domain

import "time"

// Project holds the prompt and scheduling configuration for generations.
type Project struct {
	ID                      string
	UserID                  string
	Name                    string
	Prompt                  string
	ReferenceImageURL       string
	ScheduleEnabled         bool
	ScheduleIntervalMinutes int
	ScheduleMaxImages       int
	ScheduleDurationDays    int
	LastGenerationAt        *time.Time
	CreatedAt               time.Time
}

// Schedule is read-only here; it is maintained by the dashboard.
type Schedule struct {
	ID              string
	ProjectID       string
	UserID          string
	Enabled         bool
	IntervalMinutes int
	CreatedAt       time.Time
}
