package kv

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/locusmap/internal/blobstore"
	"github.com/kailas-cloud/locusmap/internal/db/redis"
)

func TestGetFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "locusmap:dataMap.json")).
		Return(mock.Result(mock.RedisBlobString(`[{"_id":"m1"}]`)))

	s := NewStore(redis.NewStoreForTest(c), "locusmap:")
	data, err := s.GetFile(context.Background(), "dataMap.json")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(data) != `[{"_id":"m1"}]` {
		t.Errorf("unexpected data: %s", data)
	}
}

func TestGetFile_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "locusmap:indexData.json")).
		Return(mock.Result(mock.RedisNil()))

	s := NewStore(redis.NewStoreForTest(c), "locusmap:")
	_, err := s.GetFile(context.Background(), "indexData.json")
	if !errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestGetFile_BackendError(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("GET", "k")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStore(redis.NewStoreForTest(c), "")
	_, err := s.GetFile(context.Background(), "k")
	if err == nil || errors.Is(err, blobstore.ErrNotFound) {
		t.Errorf("expected backend error, got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("SET", "locusmap:indexData.json", "{}")).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStore(redis.NewStoreForTest(c), "locusmap:")
	if err := s.WriteFile(context.Background(), "indexData.json", []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWriteFile_WithTTL(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return len(cmd) == 5 && cmd[0] == "SET" && cmd[1] == "locusmap:indexData.json" &&
				cmd[3] == "EX" && cmd[4] == "3600"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStore(redis.NewStoreForTest(c), "locusmap:").WithTTL(time.Hour)
	if err := s.WriteFile(context.Background(), "indexData.json", []byte("{}")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestInvalidName(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	s := NewStore(redis.NewStoreForTest(c), "")
	if _, err := s.GetFile(context.Background(), "../etc/passwd"); !errors.Is(err, blobstore.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
	if err := s.WriteFile(context.Background(), "/abs", nil); !errors.Is(err, blobstore.ErrInvalidName) {
		t.Errorf("expected ErrInvalidName, got %v", err)
	}
}
