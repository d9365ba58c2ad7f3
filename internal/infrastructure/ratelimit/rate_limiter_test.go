package ratelimit

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenBucket_ExhaustsAndReportsWait(t *testing.T) {
	bucket := NewTokenBucket(2, 1, time.Minute)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.True(t, allowed)

	allowed, wait := bucket.Allow()
	assert.False(t, allowed)
	assert.Greater(t, wait, time.Duration(0))
}

func TestTokenBucket_Refills(t *testing.T) {
	bucket := NewTokenBucket(1, 1, 10*time.Millisecond)

	allowed, _ := bucket.Allow()
	assert.True(t, allowed)
	allowed, _ = bucket.Allow()
	assert.False(t, allowed)

	time.Sleep(20 * time.Millisecond)

	allowed, _ = bucket.Allow()
	assert.True(t, allowed)
}

func TestRateLimiter_IsolatesUsersAndActions(t *testing.T) {
	rl := NewRateLimiter()

	// Drain alice's create_chat bucket.
	for i := 0; i < 5; i++ {
		allowed, _ := rl.Allow("alice", "create_chat")
		assert.True(t, allowed)
	}
	allowed, _ := rl.Allow("alice", "create_chat")
	assert.False(t, allowed)

	// A different user and a different action are untouched.
	allowed, _ = rl.Allow("bob", "create_chat")
	assert.True(t, allowed)
	allowed, _ = rl.Allow("alice", "send_message")
	assert.True(t, allowed)
}
