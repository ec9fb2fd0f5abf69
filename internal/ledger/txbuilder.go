package ledger

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gagliardetto/solana-go"
	computebudget "github.com/gagliardetto/solana-go/programs/compute-budget"
	"github.com/gagliardetto/solana-go/programs/system"
)

// TxBuilder собирает неподписанную транзакцию оплаты выбора.
type TxBuilder struct {
	chain    Chain
	treasury solana.PublicKey
	cuLimit  uint32
	cuPrice  uint64
}

func NewTxBuilder(chain Chain, treasury solana.PublicKey, computeUnitLimit uint32, computeUnitPrice uint64) *TxBuilder {
	return &TxBuilder{
		chain:    chain,
		treasury: treasury,
		cuLimit:  computeUnitLimit,
		cuPrice:  computeUnitPrice,
	}
}

// Build возвращает транзакцию: перевод в казну, memo с тегом, лимит и цена compute units.
// Плательщик комиссии - payer. Транзакция не подписывается.
func (b *TxBuilder) Build(ctx context.Context, payer solana.PublicKey, lamports uint64, tag string) (*solana.Transaction, error) {
	blockhash, err := b.chain.LatestBlockhash(ctx)
	if err != nil {
		return nil, err
	}

	instructions := []solana.Instruction{
		system.NewTransferInstruction(lamports, payer, b.treasury).Build(),
		NewMemoInstruction(tag),
		computebudget.NewSetComputeUnitLimitInstruction(b.cuLimit).Build(),
		computebudget.NewSetComputeUnitPriceInstruction(b.cuPrice).Build(),
	}

	tx, err := solana.NewTransaction(instructions, blockhash, solana.TransactionPayer(payer))
	if err != nil {
		return nil, fmt.Errorf("failed to assemble transaction: %w", err)
	}
	return tx, nil
}

// EncodeUnsigned сериализует транзакцию в base64 с пустыми слотами подписей,
// как это делает кошелек перед подписанием.
func EncodeUnsigned(tx *solana.Transaction) (string, error) {
	required := int(tx.Message.Header.NumRequiredSignatures)
	if len(tx.Signatures) != required {
		tx.Signatures = make([]solana.Signature, required)
	}
	raw, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("failed to serialize transaction: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
