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

package roap

import (
	"context"
	"errors"
	"strings"
)

// Auth request types
const (
	AuthKeyReq       = "AuthKeyReq"
	CancelAuthKeyReq = "CancelAuthKeyReq"
	AuthReq          = "AuthReq"
)

// AuthService handles pairing. All calls post an "auth" envelope.
type AuthService struct {
	client *Client
}

// AuthKeyReq asks the TV to display a pairing key.
func (s *AuthService) AuthKeyReq(ctx context.Context) *Future[Document] {
	return s.client.send(ctx, GroupAuth, Params{{Key: "type", Value: AuthKeyReq}})
}

// CancelAuthKeyReq dismisses a pairing key shown on the TV.
func (s *AuthService) CancelAuthKeyReq(ctx context.Context) *Future[Document] {
	return s.client.send(ctx, GroupAuth, Params{{Key: "type", Value: CancelAuthKeyReq}})
}

// AuthReq exchanges a pairing key for a session. A blank pairingKey falls
// back to the key configured with WithPairingKey; if neither is set the
// Future fails with ErrConfiguration and nothing is sent. The key is sent
// exactly as given.
func (s *AuthService) AuthReq(ctx context.Context, pairingKey string) *Future[Document] {
	key := pairingKey
	if strings.TrimSpace(key) == "" {
		key = s.client.pairingKey
	}
	if strings.TrimSpace(key) == "" {
		return Rejected[Document](configurationError("auth "+AuthReq, errors.New("no pairing key supplied or configured")))
	}

	return s.client.send(ctx, GroupAuth, Params{
		{Key: "type", Value: AuthReq},
		{Key: "value", Value: key},
	})
}
