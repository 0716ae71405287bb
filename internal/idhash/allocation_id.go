package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"hydra-launchpad/internal/domain"
)

// ComputeAllocationID computes a deterministic id for a split allocation
// isolated inside a head. Asset units are folded in sorted order so the id
// is independent of map iteration order.
// Formula: SHA256(address|channel_id|lovelace|unit=qty|...)
// Returns hex-encoded hash (64 characters).
func ComputeAllocationID(address string, channelID int, target domain.Value) string {
	units := make([]string, 0, len(target.Assets))
	for unit := range target.Assets {
		units = append(units, unit)
	}
	sort.Strings(units)

	data := fmt.Sprintf("%s|%d|%d", address, channelID, target.Lovelace)
	for _, unit := range units {
		data += fmt.Sprintf("|%s=%d", unit, target.Assets[unit])
	}

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
