package tokens

import "errors"

var (
	// ErrMalformedToken — строку токена не удалось разобрать (версия, base64,
	// длина, структура claims). Не повторяется; логируется как error.
	ErrMalformedToken = errors.New("malformed token")

	// ErrInvalidSignature — аутентификация AEAD не прошла: чужой ключ или
	// изменённые байты. Не повторяется; логируется как error.
	ErrInvalidSignature = errors.New("invalid token signature")

	// ErrTokenExpired — истёк срок, зашитый в сам токен.
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenConsumedOrExpired — записи nonce в кэше нет: токен уже использован,
	// истёк на стороне кэша или никогда не выпускался. Случаи намеренно неразличимы.
	ErrTokenConsumedOrExpired = errors.New("token consumed or expired")

	// ErrCacheUnavailable — кэш не ответил на запись/удаление. Повтор — на стороне вызывающего.
	ErrCacheUnavailable = errors.New("token cache unavailable")

	// ErrNonceCollision — исчерпаны попытки записать уникальный nonce.
	ErrNonceCollision = errors.New("token nonce collision")

	// ErrInvalidInput — пустой subject, неизвестное назначение или неположительный TTL.
	ErrInvalidInput = errors.New("invalid token input")
)

// IsLifecycle сообщает, что ошибка относится к жизненному циклу токена
// (истёк/использован): пользователю предлагается запросить новую ссылку.
func IsLifecycle(err error) bool {
	return errors.Is(err, ErrTokenExpired) || errors.Is(err, ErrTokenConsumedOrExpired)
}

// IsRejected сообщает, что токен отвергнут по формату или подписи.
func IsRejected(err error) bool {
	return errors.Is(err, ErrMalformedToken) || errors.Is(err, ErrInvalidSignature)
}
