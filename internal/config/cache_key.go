package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// StudentSessionKey returns the cache key for a student's login session
func (r *CacheKeyStruct) StudentSessionKey(studentID int) string {
	return fmt.Sprintf("login:%d", studentID)
}

// AttemptPayloadKey returns the cache key for an attempt's composed question payload
func (r *CacheKeyStruct) AttemptPayloadKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:payload", attemptID)
}

// AttemptAnswersKey returns the cache key for an attempt's autosaved answers
func (r *CacheKeyStruct) AttemptAnswersKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:answers", attemptID)
}

// AttemptStartKey returns the cache key for an attempt's start timestamp
func (r *CacheKeyStruct) AttemptStartKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:started_at", attemptID)
}

// AttemptViolationsKey returns the cache key for an attempt's live violation counter
func (r *CacheKeyStruct) AttemptViolationsKey(attemptID string) string {
	return fmt.Sprintf("attempt:%s:violations", attemptID)
}

// RoomQuestionsKey returns the cache key for a room's full question set (with keys)
func (r *CacheKeyStruct) RoomQuestionsKey(roomID string) string {
	return fmt.Sprintf("room:%s:questions", roomID)
}

// RoomMonitorChannel returns the Redis PubSub channel name for a room's live monitor
func (r *CacheKeyStruct) RoomMonitorChannel(roomID string) string {
	return fmt.Sprintf("room:%s:monitor", roomID)
}

// GradeBandsKey returns the cache key for the grade-band settings override
func (r *CacheKeyStruct) GradeBandsKey() string {
	return "settings:grade_bands"
}

var CacheKey = NewCacheKeyStruct()
