package session

import (
	"context"
	"testing"
	"time"
)

func TestChunkBuffer_AppendRecordsOffsets(t *testing.T) {
	b := NewChunkBuffer(DefaultChunkBatchBudget())
	b.Append([]byte("hello"))
	b.Append([]byte("world"))

	if got := b.ByteTotal(); got != 10 {
		t.Errorf("ByteTotal() = %d, want 10", got)
	}
}

func TestChunkBuffer_SubscribeFromStartReplaysEverything(t *testing.T) {
	b := NewChunkBuffer(DefaultChunkBatchBudget())
	b.Append([]byte("abc"))
	b.Append([]byte("def"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, 0)
	batch := recvBatch(t, ch)
	if batch.Seqnum != 0 {
		t.Errorf("Seqnum = %d, want 0", batch.Seqnum)
	}
	if len(batch.Chunks) != 2 {
		t.Fatalf("len(Chunks) = %d, want 2", len(batch.Chunks))
	}
	if string(batch.Chunks[0]) != "abc" || string(batch.Chunks[1]) != "def" {
		t.Errorf("Chunks = %q, want [abc def]", batch.Chunks)
	}
}

func TestChunkBuffer_SubscribeFromMidOffsetSkipsPriorChunks(t *testing.T) {
	b := NewChunkBuffer(DefaultChunkBatchBudget())
	b.Append([]byte("abc")) // offset 0
	b.Append([]byte("def")) // offset 3

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, 3)
	batch := recvBatch(t, ch)
	if batch.Seqnum != 3 {
		t.Errorf("Seqnum = %d, want 3", batch.Seqnum)
	}
	if len(batch.Chunks) != 1 || string(batch.Chunks[0]) != "def" {
		t.Errorf("Chunks = %q, want [def]", batch.Chunks)
	}
}

func TestChunkBuffer_SubscribeWakesOnLateAppend(t *testing.T) {
	b := NewChunkBuffer(DefaultChunkBatchBudget())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, 0)

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Append([]byte("late"))
	}()

	batch := recvBatch(t, ch)
	if string(batch.Chunks[0]) != "late" {
		t.Errorf("Chunks[0] = %q, want late", batch.Chunks[0])
	}
}

func TestChunkBuffer_CloseEndsSubscriptionAfterDraining(t *testing.T) {
	b := NewChunkBuffer(DefaultChunkBatchBudget())
	b.Append([]byte("x"))
	b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, 0)
	recvBatch(t, ch) // drains "x"

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("expected channel to close after draining, got another batch")
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for channel close")
	}
}

func TestChunkBuffer_BudgetSplitsLargeBacklog(t *testing.T) {
	b := NewChunkBuffer(ChunkBatchBudget{MaxChunks: 2, MaxBytes: 1024})
	b.Append([]byte("a"))
	b.Append([]byte("b"))
	b.Append([]byte("c"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := b.Subscribe(ctx, 0)
	first := recvBatch(t, ch)
	if len(first.Chunks) != 2 {
		t.Errorf("first batch len = %d, want 2 (MaxChunks budget)", len(first.Chunks))
	}
	second := recvBatch(t, ch)
	if len(second.Chunks) != 1 {
		t.Errorf("second batch len = %d, want 1", len(second.Chunks))
	}
}

func recvBatch(t *testing.T, ch <-chan ChunkBatch) ChunkBatch {
	t.Helper()
	select {
	case b, ok := <-ch:
		if !ok {
			t.Fatal("channel closed unexpectedly")
		}
		return b
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for chunk batch")
	}
	return ChunkBatch{}
}
