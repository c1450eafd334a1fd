// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// # Password Hashing

// Hasher hashes and verifies passwords with bcrypt.
type Hasher struct {
	cost int

	// dummy is compared against when the account does not exist so that
	// both sign-in failure paths spend the same time in bcrypt.
	dummy []byte
}

// NewHasher returns a [Hasher] using cost, or [bcrypt.DefaultCost] when cost is 0.
func NewHasher(cost int) (*Hasher, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	dummy, err := bcrypt.GenerateFromPassword([]byte("dummy-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("sec: failed to prepare hasher: %w", err)
	}

	return &Hasher{cost: cost, dummy: dummy}, nil
}

// Hash hashes a plain-text password.
func (hasher *Hasher) Hash(plainTextPassword string) (string, error) {
	hashedBytes, err := bcrypt.GenerateFromPassword([]byte(plainTextPassword), hasher.cost)
	if err != nil {
		return "", fmt.Errorf("sec: failed to hash password: %w", err)
	}
	return string(hashedBytes), nil
}

// Verify compares a plain-text password with its hashed version.
func (hasher *Hasher) Verify(plainTextPassword, existingHash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(existingHash), []byte(plainTextPassword))
	return err == nil
}

// VerifyDummy burns one bcrypt comparison and always reports false.
func (hasher *Hasher) VerifyDummy(plainTextPassword string) bool {
	_ = bcrypt.CompareHashAndPassword(hasher.dummy, []byte(plainTextPassword))
	return false
}

// # Session Hash

const sessionSeedBytes = 32

// NewSessionHash returns the hex SHA-256 digest of 32 random bytes.
//
// The result is stored on the session row and embedded in the refresh token.
func NewSessionHash() (string, error) {
	seed := make([]byte, sessionSeedBytes)
	if _, err := rand.Read(seed); err != nil {
		return "", fmt.Errorf("sec: failed to read random seed: %w", err)
	}
	sum := sha256.Sum256(seed)
	return hex.EncodeToString(sum[:]), nil
}
