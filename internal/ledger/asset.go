package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// CoreProgramAddress - адрес программы Metaplex Core по умолчанию, переопределяется CORE_PROGRAM_ID.
const CoreProgramAddress = "CoREENxT6tW1HoK8ypY1SyRMZ4Rj91Jb1fCqzH8M3Ks9"

const (
	coreCreateV1Discriminator   uint8 = 0
	coreTransferV1Discriminator uint8 = 14
	coreKeyAssetV1              uint8 = 1
)

var ErrInvalidAssetAccount = errors.New("account is not a core asset")

// AssetInfo - разобранный аккаунт AssetV1.
type AssetInfo struct {
	Owner solana.PublicKey
	Name  string
	URI   string
}

// AssetClient создает, передает и читает ассеты Metaplex Core от имени минтера.
type AssetClient struct {
	chain   Chain
	minter  solana.PrivateKey
	program solana.PublicKey
	logger  *zap.Logger
}

func NewAssetClient(chain Chain, minter solana.PrivateKey, program solana.PublicKey, logger *zap.Logger) *AssetClient {
	return &AssetClient{
		chain:   chain,
		minter:  minter,
		program: program,
		logger:  logger.Named("AssetClient"),
	}
}

// Minter возвращает адрес минтера (плательщик и первый владелец ассетов).
func (c *AssetClient) Minter() solana.PublicKey {
	return c.minter.PublicKey()
}

// Mint создает новый ассет с новым ключом и ждет подтверждения.
func (c *AssetClient) Mint(ctx context.Context, name, uri string) (solana.PublicKey, error) {
	assetKey, err := solana.NewRandomPrivateKey()
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("failed to generate asset key: %w", err)
	}
	ix, err := NewCreateAssetInstruction(c.program, assetKey.PublicKey(), c.minter.PublicKey(), name, uri)
	if err != nil {
		return solana.PublicKey{}, err
	}

	sig, err := signAndSend(ctx, c.chain, c.minter, []solana.Instruction{ix}, assetKey)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("create asset: %w", err)
	}
	c.logger.Info("Asset minted",
		zap.String("asset", assetKey.PublicKey().String()),
		zap.String("uri", uri),
		zap.String("signature", sig.String()),
	)
	return assetKey.PublicKey(), nil
}

// Transfer передает ассет новому владельцу. Текущий владелец - минтер.
func (c *AssetClient) Transfer(ctx context.Context, asset, newOwner solana.PublicKey) error {
	ix := NewTransferAssetInstruction(c.program, asset, c.minter.PublicKey(), newOwner)
	sig, err := signAndSend(ctx, c.chain, c.minter, []solana.Instruction{ix})
	if err != nil {
		return fmt.Errorf("transfer asset: %w", err)
	}
	c.logger.Info("Asset transferred",
		zap.String("asset", asset.String()),
		zap.String("new_owner", newOwner.String()),
		zap.String("signature", sig.String()),
	)
	return nil
}

// Fetch читает аккаунт ассета.
func (c *AssetClient) Fetch(ctx context.Context, asset solana.PublicKey) (AssetInfo, error) {
	data, err := c.chain.AccountData(ctx, asset)
	if err != nil {
		return AssetInfo{}, err
	}
	return DecodeAsset(data)
}

// NewCreateAssetInstruction кодирует CreateV1 без плагинов.
// Необязательные аккаунты заменяются адресом программы.
func NewCreateAssetInstruction(program, asset, payer solana.PublicKey, name, uri string) (solana.Instruction, error) {
	buf := new(bytes.Buffer)
	enc := bin.NewBorshEncoder(buf)
	if err := enc.WriteUint8(coreCreateV1Discriminator); err != nil {
		return nil, err
	}
	// data_state = AccountState
	if err := enc.WriteUint8(0); err != nil {
		return nil, err
	}
	if err := enc.WriteString(name); err != nil {
		return nil, err
	}
	if err := enc.WriteString(uri); err != nil {
		return nil, err
	}
	// plugins: None
	if err := enc.WriteUint8(0); err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(asset, true, true),
		solana.NewAccountMeta(program, false, false), // collection
		solana.NewAccountMeta(program, false, false), // authority
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(program, false, false), // owner
		solana.NewAccountMeta(program, false, false), // update_authority
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
		solana.NewAccountMeta(program, false, false), // log_wrapper
	}
	return solana.NewInstruction(program, accounts, buf.Bytes()), nil
}

// NewTransferAssetInstruction кодирует TransferV1 без compression proof.
func NewTransferAssetInstruction(program, asset, payer, newOwner solana.PublicKey) solana.Instruction {
	data := []byte{coreTransferV1Discriminator, 0}
	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(asset, true, false),
		solana.NewAccountMeta(program, false, false), // collection
		solana.NewAccountMeta(payer, true, true),
		solana.NewAccountMeta(program, false, false), // authority
		solana.NewAccountMeta(newOwner, false, false),
		solana.NewAccountMeta(program, false, false), // system_program
		solana.NewAccountMeta(program, false, false), // log_wrapper
	}
	return solana.NewInstruction(program, accounts, data)
}

// DecodeAsset разбирает начало аккаунта AssetV1: key, owner, update_authority, name, uri.
func DecodeAsset(data []byte) (AssetInfo, error) {
	dec := bin.NewBorshDecoder(data)
	key, err := dec.ReadUint8()
	if err != nil {
		return AssetInfo{}, fmt.Errorf("%w: %v", ErrInvalidAssetAccount, err)
	}
	if key != coreKeyAssetV1 {
		return AssetInfo{}, fmt.Errorf("%w: key %d", ErrInvalidAssetAccount, key)
	}

	owner, err := dec.ReadNBytes(solana.PublicKeyLength)
	if err != nil {
		return AssetInfo{}, fmt.Errorf("%w: owner: %v", ErrInvalidAssetAccount, err)
	}

	// update_authority: 0 = None, 1 = Address, 2 = Collection
	kind, err := dec.ReadUint8()
	if err != nil {
		return AssetInfo{}, fmt.Errorf("%w: update authority: %v", ErrInvalidAssetAccount, err)
	}
	switch kind {
	case 0:
	case 1, 2:
		if _, err := dec.ReadNBytes(solana.PublicKeyLength); err != nil {
			return AssetInfo{}, fmt.Errorf("%w: update authority: %v", ErrInvalidAssetAccount, err)
		}
	default:
		return AssetInfo{}, fmt.Errorf("%w: update authority variant %d", ErrInvalidAssetAccount, kind)
	}

	name, err := dec.ReadString()
	if err != nil {
		return AssetInfo{}, fmt.Errorf("%w: name: %v", ErrInvalidAssetAccount, err)
	}
	uri, err := dec.ReadString()
	if err != nil {
		return AssetInfo{}, fmt.Errorf("%w: uri: %v", ErrInvalidAssetAccount, err)
	}

	return AssetInfo{
		Owner: solana.PublicKeyFromBytes(owner),
		Name:  name,
		URI:   uri,
	}, nil
}

// signAndSend собирает транзакцию с плательщиком payer, подписывает ее payer и extra и отправляет.
func signAndSend(ctx context.Context, chain Chain, payer solana.PrivateKey, ixs []solana.Instruction, extra ...solana.PrivateKey) (solana.Signature, error) {
	blockhash, err := chain.LatestBlockhash(ctx)
	if err != nil {
		return solana.Signature{}, err
	}
	tx, err := solana.NewTransaction(ixs, blockhash, solana.TransactionPayer(payer.PublicKey()))
	if err != nil {
		return solana.Signature{}, fmt.Errorf("failed to assemble transaction: %w", err)
	}

	keys := append([]solana.PrivateKey{payer}, extra...)
	if _, err := tx.Sign(func(pub solana.PublicKey) *solana.PrivateKey {
		for i := range keys {
			if keys[i].PublicKey().Equals(pub) {
				return &keys[i]
			}
		}
		return nil
	}); err != nil {
		return solana.Signature{}, fmt.Errorf("failed to sign transaction: %w", err)
	}
	return chain.SendAndConfirm(ctx, tx)
}
