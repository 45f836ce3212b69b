package gateway

import (
	"context"
	"errors"
	"math/rand"
	"time"

	logger "github.com/sirupsen/logrus"
)

const (
	// PreferredClientID is tried first; on an identity conflict Connect
	// retries once with a random id from the fallback range.
	PreferredClientID   = 1
	fallbackClientIDMin = 100
	fallbackClientIDMax = 999

	// cancelPause spaces out market data cancellations during teardown so
	// the gateway is not flooded.
	cancelPause = 100 * time.Millisecond
)

// ReferenceContract is the benchmark instrument whose price feeds the strike
// ladder.
var ReferenceContract = Contract{
	Symbol:   "SPY",
	SecType:  SecTypeStock,
	Exchange: "SMART",
	Currency: "USD",
}

// Session owns the gateway connection lifecycle: connect with identity
// fallback, callback registration, the initial state sync, and ordered
// best-effort teardown.
type Session struct {
	client  Client
	handler Handler
	log     *logger.Entry

	account       string
	subscriptions []Contract
	pnlSubscribed bool
	connected     bool

	clientID func() int
}

func NewSession(client Client, handler Handler) *Session {
	return &Session{
		client:  client,
		handler: handler,
		log:     logger.WithField("component", "Session"),
		clientID: func() int {
			return fallbackClientIDMin + rand.Intn(fallbackClientIDMax-fallbackClientIDMin+1)
		},
	}
}

// Connect establishes the session and primes the state cache. The initial
// sync replays current positions, open trades, and portfolio items through
// the same handler used for live events, so re-entry is idempotent.
func (s *Session) Connect(ctx context.Context) error {
	if err := s.client.Connect(ctx, PreferredClientID); err != nil {
		if !errors.Is(err, ErrIdentityInUse) {
			return err
		}
		fallback := s.clientID()
		s.log.WithField("client_id", fallback).
			Warnf("Client ID %d in use, retrying with fallback identity", PreferredClientID)
		if err := s.client.Connect(ctx, fallback); err != nil {
			return err
		}
	}
	s.connected = true

	// Delayed data must be selected before any market data request.
	if err := s.client.SetMarketDataType(ctx, MarketDataDelayed); err != nil {
		return &ConnectionError{Op: "set market data type", Err: err}
	}

	s.client.RegisterHandler(s.handler)

	if err := s.subscribeReferenceData(ctx); err != nil {
		s.log.WithError(err).Error("Failed to subscribe reference market data")
	}

	s.log.Info("Running initial state sync")
	positions, err := s.client.Positions(ctx)
	if err != nil {
		return &ConnectionError{Op: "initial positions sync", Err: err}
	}
	for _, p := range positions {
		s.handler.OnPosition(p)
	}

	trades, err := s.client.OpenTrades(ctx)
	if err != nil {
		return &ConnectionError{Op: "initial orders sync", Err: err}
	}
	for _, t := range trades {
		s.handler.OnOrderStatus(t)
	}

	portfolio, err := s.client.Portfolio(ctx)
	if err != nil {
		return &ConnectionError{Op: "initial portfolio sync", Err: err}
	}
	for _, item := range portfolio {
		s.handler.OnPortfolio(item)
	}

	if err := s.subscribePnL(ctx); err != nil {
		s.log.WithError(err).Error("Failed to subscribe to PnL")
	}

	s.log.Info("Initial state sync complete")
	return nil
}

func (s *Session) subscribeReferenceData(ctx context.Context) error {
	qualified, err := s.client.QualifyContract(ctx, ReferenceContract)
	if err != nil {
		return err
	}
	if err := s.client.SubscribeMarketData(ctx, qualified); err != nil {
		return err
	}
	s.subscriptions = append(s.subscriptions, qualified)
	s.log.WithField("symbol", qualified.Symbol).Info("Subscribed to reference market data")
	return nil
}

func (s *Session) subscribePnL(ctx context.Context) error {
	accounts, err := s.client.ManagedAccounts(ctx)
	if err != nil {
		return err
	}
	if len(accounts) == 0 {
		return errors.New("no managed accounts")
	}
	s.account = accounts[0]
	if err := s.client.SubscribePnL(ctx, s.account); err != nil {
		return err
	}
	s.pnlSubscribed = true
	s.log.WithField("account", s.account).Info("Subscribed to PnL")
	return nil
}

// Disconnect tears the session down step by step. Each step is independently
// guarded: a failure is logged and the remaining steps still run.
func (s *Session) Disconnect(ctx context.Context) {
	if !s.connected {
		return
	}
	s.connected = false

	s.client.UnregisterHandler(s.handler)

	if s.pnlSubscribed {
		if err := s.client.CancelPnL(ctx, s.account); err != nil {
			s.log.WithError(err).Error("Error canceling PnL subscription")
		}
		s.pnlSubscribed = false
	}

	for _, contract := range s.subscriptions {
		if err := s.client.CancelMarketData(ctx, contract); err != nil {
			s.log.WithError(err).WithField("symbol", contract.Symbol).
				Error("Error canceling market data subscription")
		}
		time.Sleep(cancelPause)
	}
	s.subscriptions = nil

	if err := s.client.Disconnect(); err != nil {
		s.log.WithError(err).Error("Error during gateway disconnect")
	}

	s.log.Info("Gateway session closed")
}
