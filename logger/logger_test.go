package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

func TestSlogLevelRoundtrip(t *testing.T) {
	l := NewSlog(InfoLevel, false)
	assert.Equal(t, InfoLevel, l.Level())

	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())

	l.SetLevel(WarnLevel)
	assert.Equal(t, WarnLevel, l.Level())

	l.SetLevel(ErrorLevel)
	assert.Equal(t, ErrorLevel, l.Level())
}

func TestSlogWith(t *testing.T) {
	l := NewSlog(InfoLevel, false)

	child := l.With("component", "link")
	assert.NotNil(t, child)

	// The child shares the parent's level handle.
	l.SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, child.Level())
}

func TestDefaultLogger(t *testing.T) {
	l := GetLogger()
	assert.NotNil(t, l)

	SetLevel(DebugLevel)
	assert.Equal(t, DebugLevel, l.Level())
	SetLevel(InfoLevel)
}

func TestMockLogger(t *testing.T) {
	m := NewMockLogger()
	m.On("Info", "pump initialized", mock.Anything).Return()
	m.On("Debug", "exchange", mock.Anything).Return()

	var l Logger = m
	l.Info("pump initialized", "channels", 4)
	l.Debug("exchange", "command", "1S")

	m.AssertExpectations(t)
}
