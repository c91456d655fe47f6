package freedcamp

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"
)

// Signature пара параметров аутентификации одного запроса.
type Signature struct {
	Timestamp int64
	Hash      string
}

// Signer подписывает исходящие запросы ключом и секретом Freedcamp.
type Signer struct {
	key    string
	secret string
	now    func() time.Time
}

// NewSigner создает подписчика с системными часами.
func NewSigner(key, secret string) *Signer {
	return &Signer{key: key, secret: secret, now: time.Now}
}

// Sign возвращает свежую подпись на текущий момент. Вызывается на каждый запрос.
func (s *Signer) Sign() Signature {
	ts := s.now().Unix()
	return Signature{Timestamp: ts, Hash: Sign(s.key, s.secret, ts)}
}

// Sign считает HMAC-SHA1(secret, key ‖ timestamp) в нижнем hex.
func Sign(key, secret string, timestamp int64) string {
	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(key + strconv.FormatInt(timestamp, 10)))
	return hex.EncodeToString(mac.Sum(nil))
}
