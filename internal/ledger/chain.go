package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"
)

var (
	ErrAccountNotFound     = errors.New("account not found")
	ErrTransactionFailed   = errors.New("transaction failed on ledger")
	ErrConfirmationTimeout = errors.New("transaction not confirmed in time")
)

// SignatureInfo - запись истории подписей адреса.
// Memo в формате RPC: "[len] text; [len] text".
type SignatureInfo struct {
	Signature string
	Memo      string
	Failed    bool
}

// Chain - операции с леджером, которые нужны серверу.
type Chain interface {
	LatestBlockhash(ctx context.Context) (solana.Hash, error)
	// RecentSignatures возвращает до limit последних подтвержденных подписей адреса, новые первыми.
	RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]SignatureInfo, error)
	// AccountData возвращает данные аккаунта или ErrAccountNotFound.
	AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error)
	// SendAndConfirm отправляет подписанную транзакцию и ждет подтверждения.
	SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error)
}

// RPCChain реализует Chain поверх JSON-RPC клиента solana-go.
type RPCChain struct {
	client          *rpc.Client
	confirmAttempts int
	confirmInterval time.Duration
	logger          *zap.Logger
}

func NewRPCChain(endpoint string, confirmAttempts int, confirmInterval time.Duration, logger *zap.Logger) *RPCChain {
	if confirmAttempts < 1 {
		confirmAttempts = 1
	}
	return &RPCChain{
		client:          rpc.New(endpoint),
		confirmAttempts: confirmAttempts,
		confirmInterval: confirmInterval,
		logger:          logger.Named("RPCChain"),
	}
}

func (c *RPCChain) LatestBlockhash(ctx context.Context) (solana.Hash, error) {
	res, err := c.client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return solana.Hash{}, fmt.Errorf("getLatestBlockhash: %w", err)
	}
	if res == nil || res.Value == nil {
		return solana.Hash{}, errors.New("getLatestBlockhash: empty result")
	}
	return res.Value.Blockhash, nil
}

func (c *RPCChain) RecentSignatures(ctx context.Context, address solana.PublicKey, limit int) ([]SignatureInfo, error) {
	res, err := c.client.GetSignaturesForAddressWithOpts(ctx, address, &rpc.GetSignaturesForAddressOpts{
		Limit:      &limit,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return nil, fmt.Errorf("getSignaturesForAddress: %w", err)
	}
	out := make([]SignatureInfo, 0, len(res))
	for _, s := range res {
		if s == nil {
			continue
		}
		info := SignatureInfo{
			Signature: s.Signature.String(),
			Failed:    s.Err != nil,
		}
		if s.Memo != nil {
			info.Memo = *s.Memo
		}
		out = append(out, info)
	}
	return out, nil
}

func (c *RPCChain) AccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	res, err := c.client.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Encoding:   solana.EncodingBase64,
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
		}
		return nil, fmt.Errorf("getAccountInfo %s: %w", address, err)
	}
	if res == nil || res.Value == nil {
		return nil, fmt.Errorf("%w: %s", ErrAccountNotFound, address)
	}
	return res.Value.Data.GetBinary(), nil
}

func (c *RPCChain) SendAndConfirm(ctx context.Context, tx *solana.Transaction) (solana.Signature, error) {
	sig, err := c.client.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{
		PreflightCommitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		return solana.Signature{}, fmt.Errorf("sendTransaction: %w", err)
	}
	log := c.logger.With(zap.String("signature", sig.String()))
	log.Debug("Transaction sent, awaiting confirmation")

	for attempt := 1; attempt <= c.confirmAttempts; attempt++ {
		statuses, err := c.client.GetSignatureStatuses(ctx, true, sig)
		if err != nil {
			log.Warn("getSignatureStatuses failed", zap.Int("attempt", attempt), zap.Error(err))
		} else if statuses != nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return sig, fmt.Errorf("%w: %s: %v", ErrTransactionFailed, sig, st.Err)
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				log.Debug("Transaction confirmed", zap.Int("attempt", attempt))
				return sig, nil
			}
		}

		select {
		case <-ctx.Done():
			return sig, ctx.Err()
		case <-time.After(c.confirmInterval):
		}
	}
	return sig, fmt.Errorf("%w: %s", ErrConfirmationTimeout, sig)
}

var _ Chain = (*RPCChain)(nil)
