// Copyright (c) 2020 The chain2 developers

// Distributed under the MIT software license, see the accompanying
// file COPYING or http://www.opensource.org/licenses/mit-license.php.

package subscriptions

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/chain2/chain2/api/utils"
	"github.com/chain2/chain2/chain"
	"github.com/chain2/chain2/chain2"
	"github.com/chain2/chain2/log"
)

const pingPeriod = 10 * time.Second

var logger = log.WithContext("pkg", "subscriptions")

// Subscriptions streams active-chain changes over websockets.
type Subscriptions struct {
	repo     *chain.Repository
	upgrader *websocket.Upgrader
	done     chan struct{}
}

func New(repo *chain.Repository, allowedOrigins []string) *Subscriptions {
	return &Subscriptions{
		repo: repo,
		upgrader: &websocket.Upgrader{
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				origin := strings.ToLower(r.Header.Get("Origin"))
				if origin == "" {
					return true
				}
				for _, allowed := range allowedOrigins {
					if allowed == "*" || allowed == origin {
						return true
					}
				}
				return false
			},
		},
		done: make(chan struct{}),
	}
}

// handleSubscribeBlocks pushes every active-chain change since the given
// position, then keeps the socket open and feeds changes as they happen.
func (s *Subscriptions) handleSubscribeBlocks(w http.ResponseWriter, req *http.Request) error {
	position, err := s.parsePosition(req.URL.Query().Get("pos"))
	if err != nil {
		return utils.BadRequest(errors.WithMessage(err, "pos"))
	}

	conn, err := s.upgrader.Upgrade(w, req, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	// drain the read side to learn when the peer goes away
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	reader := newBlockReader(s.repo, position)
	ticker := s.repo.NewTicker()
	pinger := time.NewTicker(pingPeriod)
	defer pinger.Stop()

	for {
		msgs, err := reader.Read()
		if err != nil {
			return err
		}
		for _, msg := range msgs {
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("subscriber write failed", "err", err)
				return nil
			}
		}

		select {
		case <-s.done:
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutdown"))
			return nil
		case <-req.Context().Done():
			return nil
		case <-closed:
			return nil
		case <-ticker.C():
		case <-pinger.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return nil
			}
		}
	}
}

// parsePosition resolves the stream start: a stored block id, or the
// current best block when empty.
func (s *Subscriptions) parsePosition(pos string) (chain2.Bytes32, error) {
	if pos == "" {
		return s.repo.BestBlockSummary().ID(), nil
	}
	id, err := chain2.ParseBytes32(pos)
	if err != nil {
		return chain2.Bytes32{}, err
	}
	if _, err := s.repo.GetBlockSummary(id); err != nil {
		if s.repo.IsNotFound(err) {
			return chain2.Bytes32{}, errors.New("unknown block")
		}
		return chain2.Bytes32{}, err
	}
	return id, nil
}

// Close signals all open subscriptions to shut down.
func (s *Subscriptions) Close() {
	close(s.done)
}

func (s *Subscriptions) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("/block").
		Methods(http.MethodGet).
		Name("subscriptions_block").
		HandlerFunc(utils.WrapHandlerFunc(s.handleSubscribeBlocks))
}
