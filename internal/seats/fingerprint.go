package seats

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
)

// Константы перенесены как есть из мобильного приложения SEAtS.
// Это не секреты конкретного аккаунта: один и тот же KEY/IV зашит во все
// установки приложения, аккаунт привязан через расшифровываемый им ключ.
var (
	fpConstantKey = []byte{13, 146, 236, 36, 206, 221, 229, 5}
	fpAESKey      = []byte{241, 55, 32, 79, 252, 55, 172, 77, 98, 94, 137, 19, 247, 113, 197, 166}
	fpAESIV       = []byte{0, 92, 145, 239, 90, 227, 23, 59, 55, 190, 85, 212, 234, 73, 12, 146}
)

// decryptSigningKey расшифровывает значение настройки MobilePhone.
// Внутри base64 лежит AES-128-CBC шифротекст, под ним - hex-строка
// с байтами ключа подписи.
func decryptSigningKey(ciphertext string) (string, error) {
	if ciphertext == "" {
		return "", fmt.Errorf("empty signing key ciphertext")
	}

	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return "", fmt.Errorf("decode signing key: %w", err)
	}

	if len(raw) == 0 || len(raw)%aes.BlockSize != 0 {
		return "", fmt.Errorf("signing key ciphertext is not a multiple of the block size")
	}

	block, err := aes.NewCipher(fpAESKey)
	if err != nil {
		return "", fmt.Errorf("init cipher: %w", err)
	}

	plain := make([]byte, len(raw))
	cipher.NewCBCDecrypter(block, fpAESIV).CryptBlocks(plain, raw)

	// Снимаем PKCS#7 padding
	padLen := int(plain[len(plain)-1])
	if padLen == 0 || padLen > aes.BlockSize || padLen > len(plain) {
		return "", fmt.Errorf("invalid signing key padding")
	}
	for _, b := range plain[len(plain)-padLen:] {
		if int(b) != padLen {
			return "", fmt.Errorf("invalid signing key padding")
		}
	}

	return string(plain[:len(plain)-padLen]), nil
}

// hashTail64 SHA-256 от a+b, первые 8 байт дайджеста как little-endian uint64
func hashTail64(a, b []byte) uint64 {
	h := sha256.New()
	h.Write(a)
	h.Write(b)
	return binary.LittleEndian.Uint64(h.Sum(nil)[:8])
}

// ComputeFingerprint вычисляет значение query-параметра fp для запроса отметки.
// input - конкатенация timestamp, timetableId, studentScheduleId и причины
// отметки; signingKeyCiphertext - зашифрованная настройка MobilePhone аккаунта.
// Алгоритм должен бит-в-бит совпадать с мобильным приложением, иначе сервер
// отклонит запрос.
func ComputeFingerprint(input, signingKeyCiphertext string) (string, error) {
	signingKeyHex, err := decryptSigningKey(signingKeyCiphertext)
	if err != nil {
		return "", err
	}

	mobileBytes, err := hex.DecodeString(signingKeyHex)
	if err != nil {
		return "", fmt.Errorf("signing key is not a hex string: %w", err)
	}

	// Промежуточный хеш от ключа подписи, обратно в 8 little-endian байт
	mobileHash := hashTail64(mobileBytes, fpConstantKey)
	var mobileHashBuffer [8]byte
	binary.LittleEndian.PutUint64(mobileHashBuffer[:], mobileHash)

	final := hashTail64([]byte(input), mobileHashBuffer[:])
	return strconv.FormatUint(final, 10), nil
}
