// Package mock provides norflash.HAL test doubles in the style of the
// sensors module's own mocks: a testify/mock.Mock-based HAL for
// expectation-driven unit tests, and a small in-memory simulator, in the
// spirit of environment.MockTemperatureAndHumiditySensor, for exercising
// the engine end-to-end without hardware.
package mock

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/mklimuk/norflash"
)

// HAL is a testify/mock.Mock implementation of norflash.HAL, mirroring
// air.MockI2CBus: each method records the call via m.Called and returns
// whatever the test configured with On(...).
type HAL struct {
	mock.Mock
}

var _ norflash.HAL = (*HAL)(nil)

func (m *HAL) TxRx(ctx context.Context, tx, rx []byte) error {
	args := m.Called(ctx, tx, rx)
	if data, ok := args.Get(0).([]byte); ok {
		copy(rx, data)
		return args.Error(1)
	}
	return args.Error(0)
}

func (m *HAL) CS(ctx context.Context, assert bool) error {
	args := m.Called(ctx, assert)
	return args.Error(0)
}

func (m *HAL) Wait(ctx context.Context, ms uint32) error {
	args := m.Called(ctx, ms)
	return args.Error(0)
}
