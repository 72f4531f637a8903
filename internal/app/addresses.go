package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"paca-stakes/internal/service"
)

// Summary prints the multi-wallet summary. With no addresses the address book is used.
func (a *App) Summary(ctx context.Context, addresses []string) error {
	if len(addresses) == 0 {
		store, err := a.openStore(ctx)
		if err != nil {
			return err
		}
		addresses, err = store.List(ctx)
		a.closeStore(store)
		if err != nil {
			return err
		}
		if len(addresses) == 0 {
			return errors.New("address book is empty; pass addresses or run `addresses add`")
		}
	}

	c, err := a.newChain()
	if err != nil {
		return err
	}
	defer c.Close()

	renderSummaries(a.Out, c.networks, c.agg.MultiWallet(ctx, addresses))
	return nil
}

// ListAddresses prints the address book, marking the current entry.
func (a *App) ListAddresses(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	current, err := store.Current(ctx)
	if err != nil {
		return err
	}
	list, err := store.List(ctx)
	if err != nil {
		return err
	}
	renderAddresses(a.Out, current, list)
	return nil
}

// AddAddress validates address and makes its checksummed form the current entry.
func (a *App) AddAddress(ctx context.Context, address string) error {
	if !service.ValidAddress(address) {
		return fmt.Errorf("%w: %q", service.ErrInvalidAddress, address)
	}
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)
	return store.SetCurrent(ctx, common.HexToAddress(address).Hex())
}

// RemoveAddress drops address from the book.
func (a *App) RemoveAddress(ctx context.Context, address string) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)
	return store.Remove(ctx, address)
}

// ClearAddresses empties the book and the current entry.
func (a *App) ClearAddresses(ctx context.Context) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)
	return store.Clear(ctx)
}

// Alerts prints the most recent delivered reward alerts.
func (a *App) Alerts(ctx context.Context, limit int) error {
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	defer a.closeStore(store)

	alerts, err := store.ListRecentAlerts(ctx, limit)
	if err != nil {
		return err
	}
	renderAlerts(a.Out, alerts)
	return nil
}
