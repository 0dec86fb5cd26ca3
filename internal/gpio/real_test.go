//go:build linux

package gpio

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLine struct {
	values []int
	closed bool
	err    error
}

func (l *fakeLine) SetValue(v int) error {
	l.values = append(l.values, v)
	return l.err
}

func (l *fakeLine) Close() error {
	l.closed = true
	return l.err
}

func TestChipWriterWrite(t *testing.T) {
	line := &fakeLine{}
	w := &ChipWriter{lines: map[int]outputLine{26: line}}

	require.NoError(t, w.Write(26, High))
	require.NoError(t, w.Write(26, Low))
	assert.Equal(t, []int{1, 0}, line.values)

	assert.ErrorContains(t, w.Write(25, High), "not requested")
}

func TestChipWriterCloseKeepsLastLevel(t *testing.T) {
	normal := &fakeLine{}
	inverted := &fakeLine{}
	w := &ChipWriter{lines: map[int]outputLine{25: normal, 26: inverted}}

	require.NoError(t, w.Write(25, Low))
	require.NoError(t, w.Write(26, High))
	require.NoError(t, w.Close())

	assert.True(t, normal.closed)
	assert.True(t, inverted.closed)
	assert.Equal(t, []int{1}, inverted.values, "no writes after the off level")
	assert.Equal(t, []int{0}, normal.values)
	assert.Nil(t, w.lines)
}

func TestChipWriterCloseErrors(t *testing.T) {
	w := &ChipWriter{lines: map[int]outputLine{25: &fakeLine{err: errors.New("busy")}}}
	assert.ErrorContains(t, w.Close(), "close pin 25")
}
