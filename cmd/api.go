package cmd

import (
	"fmt"

	"crosswire/pkg/contract"
)

// Payload shapes for the demo contract. Both sides of the process
// boundary decode into these exact types.
type fetchDataRequest struct {
	ID int `json:"id"`
}

type fetchDataResult struct {
	Name string `json:"name"`
}

// demoAPI bundles the action descriptors the demo, host, and panel
// commands share, together with the contract built from them.
type demoAPI struct {
	logMessage contract.OneWay[string]
	fetchData  contract.TwoWay[fetchDataRequest, fetchDataResult]
	notify     contract.OneWay[string]

	contract *contract.Contract
}

// newDemoAPI declares the panelAPI contract: logMessage and fetchData
// flow renderer to main, notify flows main to renderer.
func newDemoAPI() (*demoAPI, error) {
	api := &demoAPI{
		logMessage: contract.NewOneWay[string]("logMessage"),
		fetchData:  contract.NewTwoWay[fetchDataRequest, fetchDataResult]("fetchData"),
		notify:     contract.NewOneWay[string]("notify"),
	}

	rendererToMain, err := contract.NewTable(api.logMessage, api.fetchData)
	if err != nil {
		return nil, fmt.Errorf("declare renderer-to-main actions: %w", err)
	}

	mainToRenderer, err := contract.NewTable(api.notify)
	if err != nil {
		return nil, fmt.Errorf("declare main-to-renderer actions: %w", err)
	}

	built, err := contract.New(contract.Spec{
		Namespace:      "panelAPI",
		RendererToMain: rendererToMain,
		MainToRenderer: mainToRenderer,
	})
	if err != nil {
		return nil, fmt.Errorf("build panelAPI contract: %w", err)
	}
	api.contract = built

	return api, nil
}

// itemName renders the canonical display name for a fetched item. The
// demo and host commands answer fetchData with it so the panel shows
// the same text regardless of transport.
func itemName(id int) string {
	return fmt.Sprintf("Item %d", id)
}
