package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// secretsDir - стандартный путь Docker Secrets. Переменная, чтобы тесты могли подменить путь.
var secretsDir = "/run/secrets"

// ReadSecret возвращает секрет из переменной окружения envKey, а если она пуста -
// из файла /run/secrets/<name>.
func ReadSecret(name, envKey string) (string, error) {
	if envKey != "" {
		if v := strings.TrimSpace(os.Getenv(envKey)); v != "" {
			return v, nil
		}
	}

	filePath := filepath.Join(secretsDir, name)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret %s (env %s or file %s): %w", name, envKey, filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}

// readOptionalSecret - то же самое, но отсутствие секрета не ошибка.
func readOptionalSecret(name, envKey string) string {
	v, err := ReadSecret(name, envKey)
	if err != nil {
		return ""
	}
	return v
}
