package utils

import (
	"fmt"
	"os"
	"strings"
)

// SecretsDir is where Docker mounts secrets.
const SecretsDir = "/run/secrets"

// ReadSecret reads a Docker secret from SecretsDir.
func ReadSecret(secretName string) (string, error) {
	return readSecretFile(SecretsDir, secretName)
}

// ReadSecretOrEnv reads the Docker secret and falls back to envVar when the
// secret file is missing, for local runs without Docker.
func ReadSecretOrEnv(secretName, envVar string) (string, error) {
	secret, err := ReadSecret(secretName)
	if err == nil {
		return secret, nil
	}
	if v := strings.TrimSpace(os.Getenv(envVar)); v != "" {
		return v, nil
	}
	return "", fmt.Errorf("%w (and %s is not set)", err, envVar)
}

func readSecretFile(dir, secretName string) (string, error) {
	filePath := fmt.Sprintf("%s/%s", dir, secretName)
	secretBytes, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to read secret file %s: %w", filePath, err)
	}
	secret := strings.TrimSpace(string(secretBytes))
	if secret == "" {
		return "", fmt.Errorf("secret file %s is empty", filePath)
	}
	return secret, nil
}
