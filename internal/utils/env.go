package utils

import (
	"errors"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// ReadEnv parses an env file into a map without touching the process environment.
func ReadEnv(file string) (map[string]string, error) {
	f, err := os.Open(file)
	if err != nil {
		return map[string]string{}, err
	}
	defer f.Close()

	return godotenv.Parse(f)
}

// LoadEnvFile exports the variables of file into the process environment. Variables
// already set win over the file. A missing file is not an error.
func LoadEnvFile(file string) error {
	env, err := ReadEnv(file)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	for k, v := range env {
		if _, set := os.LookupEnv(k); set {
			continue
		}
		if err := os.Setenv(k, v); err != nil {
			return err
		}
	}
	return nil
}

// CleanupSlice trims every value and drops the empty ones.
func CleanupSlice(slice []string) []string {
	var cleanSlice []string
	for _, s := range slice {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		cleanSlice = append(cleanSlice, s)
	}
	return cleanSlice
}

// UniqueSlice removes duplicates, keeping the first occurrence in place.
func UniqueSlice(slice []string) []string {
	keys := make(map[string]bool)
	var list []string
	for _, entry := range slice {
		if _, value := keys[entry]; !value {
			keys[entry] = true
			list = append(list, entry)
		}
	}
	return list
}
