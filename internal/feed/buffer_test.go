package feed

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/docflow/internal/model"
)

func act(id string) model.Activity {
	return model.Activity{ID: id, Type: model.ActivityUpload, Status: model.StatusSuccess}
}

func ids(items []model.Activity) []string {
	out := make([]string, len(items))
	for i, it := range items {
		out[i] = it.ID
	}
	return out
}

func TestBufferKeepsMostRecentUpToCap(t *testing.T) {
	b := NewBuffer(50)
	for i := 1; i <= 60; i++ {
		b.Push(act(fmt.Sprintf("e%d", i)))
	}

	want := make([]string, 0, 50)
	for i := 60; i >= 11; i-- {
		want = append(want, fmt.Sprintf("e%d", i))
	}
	assert.Equal(t, 50, b.Len())
	assert.Equal(t, want, ids(b.Items()))
}

func TestBufferPushOrdersByArrivalNotTimestamp(t *testing.T) {
	b := NewBuffer(10)
	newer := act("newer")
	newer.Timestamp = time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC)
	older := act("older")
	older.Timestamp = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

	b.Push(newer)
	b.Push(older)
	assert.Equal(t, []string{"older", "newer"}, ids(b.Items()))
}

func TestBufferPushReplacesDuplicateID(t *testing.T) {
	b := NewBuffer(10)
	b.Push(act("e1"))
	b.Push(act("e2"))
	updated := act("e1")
	updated.Status = model.StatusFailed
	b.Push(updated)

	items := b.Items()
	assert.Equal(t, []string{"e1", "e2"}, ids(items))
	assert.Equal(t, model.StatusFailed, items[0].Status)
}

func TestBufferReplace(t *testing.T) {
	b := NewBuffer(3)
	b.Push(act("pushed"))
	b.Replace([]model.Activity{act("a"), act("b"), act("a"), act("c"), act("d")})
	assert.Equal(t, []string{"a", "b", "c"}, ids(b.Items()))
}

func TestBufferMergeKeepsPushedInFront(t *testing.T) {
	b := NewBuffer(4)
	b.Push(act("p1"))
	b.Merge([]model.Activity{act("a"), act("p1"), act("b"), act("c"), act("d")})
	assert.Equal(t, []string{"p1", "a", "b", "c"}, ids(b.Items()))
}

func TestBufferItemsIsACopy(t *testing.T) {
	b := NewBuffer(2)
	b.Push(act("e1"))
	items := b.Items()
	items[0].ID = "mutated"
	assert.Equal(t, []string{"e1"}, ids(b.Items()))
}

func TestNewBufferMinimumCap(t *testing.T) {
	assert.Equal(t, 1, NewBuffer(0).Cap())
}

func TestDelay(t *testing.T) {
	assert.Equal(t, 1500*time.Millisecond, Delay(0))
	assert.Equal(t, 2250*time.Millisecond, Delay(1))
	assert.Equal(t, 3375*time.Millisecond, Delay(2))
	assert.Equal(t, 30*time.Second, Delay(20))
	assert.Equal(t, 30*time.Second, Delay(10000))
	assert.Equal(t, 1500*time.Millisecond, Delay(-1))
}
