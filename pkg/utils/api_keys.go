package utils

import (
	gonanoid "github.com/matoous/go-nanoid/v2"
)

func GenerateAPIKey() (string, error) {
	key, err := gonanoid.New(32)
	if err != nil {
		return "", err
	}
	return "ss_" + key, nil
}
