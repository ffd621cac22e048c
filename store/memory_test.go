package store_test

import (
	"testing"

	"github.com/MrEthical07/goVault/store"
	"github.com/MrEthical07/goVault/store/storetest"
)

func TestMemoryConformance(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Store { return store.NewMemory() })
}
