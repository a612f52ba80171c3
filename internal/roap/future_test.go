// Copyright 2025 Arion Yau
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package roap_test

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"roapctl/internal/roap"
)

func TestFuture(t *testing.T) {
	t.Run("resolves with the function result", func(t *testing.T) {
		f := roap.Go(func() (int, error) { return 42, nil })

		v, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, 42, v)
	})

	t.Run("rejects with the function error", func(t *testing.T) {
		boom := errors.New("boom")
		f := roap.Go(func() (int, error) { return 0, boom })

		_, err := f.Result()
		assert.ErrorIs(t, err, boom)
	})

	t.Run("result is stable across reads", func(t *testing.T) {
		f := roap.Resolved("ok")

		for i := 0; i < 3; i++ {
			v, err := f.Result()
			require.NoError(t, err)
			assert.Equal(t, "ok", v)
		}
	})

	t.Run("done closes on resolution", func(t *testing.T) {
		release := make(chan struct{})
		f := roap.Go(func() (int, error) {
			<-release
			return 1, nil
		})

		select {
		case <-f.Done():
			t.Fatal("future resolved early")
		default:
		}

		close(release)
		select {
		case <-f.Done():
		case <-time.After(time.Second):
			t.Fatal("future never resolved")
		}
	})

	t.Run("await gives up when the context ends", func(t *testing.T) {
		release := make(chan struct{})
		defer close(release)
		f := roap.Go(func() (int, error) {
			<-release
			return 1, nil
		})

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
		defer cancel()

		_, err := f.Await(ctx)
		assert.ErrorIs(t, err, context.DeadlineExceeded)
	})

	t.Run("then transforms the value", func(t *testing.T) {
		f := roap.Then(roap.Resolved(7), func(v int) (string, error) {
			return strconv.Itoa(v * 2), nil
		})

		v, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, "14", v)
	})

	t.Run("then skips the function on failure", func(t *testing.T) {
		boom := errors.New("boom")
		called := false
		f := roap.Then(roap.Rejected[int](boom), func(v int) (int, error) {
			called = true
			return v, nil
		})

		_, err := f.Result()
		assert.ErrorIs(t, err, boom)
		assert.False(t, called)
	})

	t.Run("chain sequences asynchronous steps", func(t *testing.T) {
		f := roap.Chain(roap.Resolved(2), func(v int) *roap.Future[int] {
			return roap.Go(func() (int, error) { return v + 3, nil })
		})

		v, err := f.Result()
		require.NoError(t, err)
		assert.Equal(t, 5, v)
	})
}
