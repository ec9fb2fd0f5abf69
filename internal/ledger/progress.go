package ledger

import (
	"bytes"
	"context"
	"crypto/sha256"
	"errors"
	"fmt"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"go.uber.org/zap"
)

// MaxChapters - ограничение программы на начальное значение счетчика.
const MaxChapters = 200

var ErrInvalidProgressAccount = errors.New("invalid progress account")

// Progress - содержимое аккаунта прогресса читателя.
type Progress struct {
	User    solana.PublicKey
	Bump    uint8
	Chapter uint8
}

// anchorDiscriminator возвращает первые 8 байт sha256("<namespace>:<name>").
func anchorDiscriminator(namespace, name string) [8]byte {
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	var d [8]byte
	copy(d[:], sum[:8])
	return d
}

var (
	initializePdaDiscriminator    = anchorDiscriminator("global", "initialize_pda")
	incrementChapterDiscriminator = anchorDiscriminator("global", "increment_chapter")
	chapterAccountDiscriminator   = anchorDiscriminator("account", "Chapter")
)

// ProgressProgram работает с anchor-программой аккаунтов прогресса.
// Все транзакции оплачивает минтер.
type ProgressProgram struct {
	chain     Chain
	programID solana.PublicKey
	seed      []byte
	payer     solana.PrivateKey
	logger    *zap.Logger
}

func NewProgressProgram(chain Chain, programID solana.PublicKey, seed string, payer solana.PrivateKey, logger *zap.Logger) *ProgressProgram {
	return &ProgressProgram{
		chain:     chain,
		programID: programID,
		seed:      []byte(seed),
		payer:     payer,
		logger:    logger.Named("ProgressProgram"),
	}
}

// Address выводит PDA аккаунта прогресса: seeds = [seed, reader].
func (p *ProgressProgram) Address(reader solana.PublicKey) (solana.PublicKey, uint8, error) {
	addr, bump, err := solana.FindProgramAddress([][]byte{p.seed, reader.Bytes()}, p.programID)
	if err != nil {
		return solana.PublicKey{}, 0, fmt.Errorf("failed to derive progress address: %w", err)
	}
	return addr, bump, nil
}

// Ensure создает аккаунт прогресса, если его еще нет. Возвращает адрес и признак создания.
// Гонка двух одновременных Ensure решается программой: второй init упадет.
func (p *ProgressProgram) Ensure(ctx context.Context, reader solana.PublicKey) (solana.PublicKey, bool, error) {
	addr, _, err := p.Address(reader)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	log := p.logger.With(zap.String("reader", reader.String()), zap.String("progress", addr.String()))

	_, err = p.chain.AccountData(ctx, addr)
	if err == nil {
		log.Debug("Progress account exists")
		return addr, false, nil
	}
	if !errors.Is(err, ErrAccountNotFound) {
		return solana.PublicKey{}, false, fmt.Errorf("failed to check progress account: %w", err)
	}

	ix, err := p.initializeInstruction(reader, addr, 0)
	if err != nil {
		return solana.PublicKey{}, false, err
	}
	sig, err := signAndSend(ctx, p.chain, p.payer, []solana.Instruction{ix})
	if err != nil {
		// Аккаунт мог создать параллельный запрос
		if _, checkErr := p.chain.AccountData(ctx, addr); checkErr == nil {
			log.Info("Progress account created concurrently", zap.Error(err))
			return addr, false, nil
		}
		return solana.PublicKey{}, false, fmt.Errorf("initialize progress account: %w", err)
	}
	log.Info("Progress account initialized", zap.String("signature", sig.String()))
	return addr, true, nil
}

func (p *ProgressProgram) fetch(ctx context.Context, addr solana.PublicKey) (Progress, error) {
	data, err := p.chain.AccountData(ctx, addr)
	if err != nil {
		return Progress{}, err
	}
	return DecodeProgress(data)
}

// IncrementChapter увеличивает счетчик глав.
// Развернутая программа определяет только initialize_pda: раскладка increment_chapter
// предполагаемая, поэтому по умолчанию вызов выключен (PROGRESS_INCREMENT_ENABLED).
func (p *ProgressProgram) IncrementChapter(ctx context.Context, reader solana.PublicKey) error {
	addr, _, err := p.Address(reader)
	if err != nil {
		return err
	}
	// Без инициализированного аккаунта транзакция заведомо упадет
	progress, err := p.fetch(ctx, addr)
	if err != nil {
		return fmt.Errorf("increment chapter: %w", err)
	}
	ix := solana.NewInstruction(p.programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(addr, true, false),
		solana.NewAccountMeta(reader, false, false),
		solana.NewAccountMeta(p.payer.PublicKey(), true, true),
	}, incrementChapterDiscriminator[:])

	sig, err := signAndSend(ctx, p.chain, p.payer, []solana.Instruction{ix})
	if err != nil {
		return fmt.Errorf("increment chapter: %w", err)
	}
	p.logger.Debug("Chapter incremented",
		zap.String("reader", reader.String()),
		zap.Uint8("previous", progress.Chapter),
		zap.String("signature", sig.String()),
	)
	return nil
}

func (p *ProgressProgram) initializeInstruction(reader, pda solana.PublicKey, chapter uint8) (solana.Instruction, error) {
	if chapter > MaxChapters {
		return nil, fmt.Errorf("chapter count %d exceeds %d", chapter, MaxChapters)
	}
	buf := new(bytes.Buffer)
	buf.Write(initializePdaDiscriminator[:])
	if err := bin.NewBorshEncoder(buf).WriteUint8(chapter); err != nil {
		return nil, err
	}

	accounts := solana.AccountMetaSlice{
		solana.NewAccountMeta(reader, false, false),
		solana.NewAccountMeta(p.payer.PublicKey(), true, true),
		solana.NewAccountMeta(pda, true, false),
		solana.NewAccountMeta(solana.SystemProgramID, false, false),
	}
	return solana.NewInstruction(p.programID, accounts, buf.Bytes()), nil
}

// DecodeProgress разбирает аккаунт Chapter: disc[8], user[32], bump, chapter.
func DecodeProgress(data []byte) (Progress, error) {
	if len(data) < 8+32+2 {
		return Progress{}, fmt.Errorf("%w: %d bytes", ErrInvalidProgressAccount, len(data))
	}
	if !bytes.Equal(data[:8], chapterAccountDiscriminator[:]) {
		return Progress{}, fmt.Errorf("%w: discriminator mismatch", ErrInvalidProgressAccount)
	}
	return Progress{
		User:    solana.PublicKeyFromBytes(data[8:40]),
		Bump:    data[40],
		Chapter: data[41],
	}, nil
}
