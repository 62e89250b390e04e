package mocks

//go:generate mockgen -destination=./mock_provider.go -package=mocks github.com/rxtech-lab/argo-equity/pkg/marketdata/provider Provider
//go:generate mockgen -destination=./mock_strategy.go -package=mocks github.com/rxtech-lab/argo-equity/internal/strategy Algorithm
