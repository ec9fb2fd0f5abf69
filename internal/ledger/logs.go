package ledger

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
)

// LogEvent - уведомление logsSubscribe о транзакции.
type LogEvent struct {
	Signature string
	Failed    bool
	Logs      []string
}

// LogSubscription - поток событий по одному адресу.
type LogSubscription interface {
	Recv(ctx context.Context) (LogEvent, error)
	Close()
}

// LogSubscriber открывает подписку на транзакции, упоминающие адрес.
type LogSubscriber interface {
	SubscribeMentions(ctx context.Context, address solana.PublicKey) (LogSubscription, error)
}

// WSLogSubscriber открывает отдельное websocket-соединение на каждую подписку.
type WSLogSubscriber struct {
	endpoint string
}

func NewWSLogSubscriber(endpoint string) *WSLogSubscriber {
	return &WSLogSubscriber{endpoint: endpoint}
}

func (s *WSLogSubscriber) SubscribeMentions(ctx context.Context, address solana.PublicKey) (LogSubscription, error) {
	client, err := ws.Connect(ctx, s.endpoint)
	if err != nil {
		return nil, fmt.Errorf("ws connect: %w", err)
	}
	sub, err := client.LogsSubscribeMentions(address, rpc.CommitmentConfirmed)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("logsSubscribe: %w", err)
	}
	return &wsLogSubscription{client: client, sub: sub}, nil
}

type wsLogSubscription struct {
	client *ws.Client
	sub    *ws.LogSubscription
}

func (s *wsLogSubscription) Recv(ctx context.Context) (LogEvent, error) {
	res, err := s.sub.Recv(ctx)
	if err != nil {
		return LogEvent{}, err
	}
	return LogEvent{
		Signature: res.Value.Signature.String(),
		Failed:    res.Value.Err != nil,
		Logs:      res.Value.Logs,
	}, nil
}

func (s *wsLogSubscription) Close() {
	s.sub.Unsubscribe()
	s.client.Close()
}

var _ LogSubscriber = (*WSLogSubscriber)(nil)
