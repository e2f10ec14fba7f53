package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
)

// Стандартные ключи атрибутов
const (
	// Сеть
	AttrNetworkNodes = "network.nodes"
	AttrNetworkArcs  = "network.arcs"
	AttrNetworkSeed  = "network.seed"

	// Прогон ядра
	AttrRunID            = "run.id"
	AttrRunMode          = "run.mode"
	AttrRunIterations    = "run.iterations"
	AttrRunPivots        = "run.pivots"
	AttrRunDegenerate    = "run.degenerate_pivots"
	AttrRunFinalCost     = "run.final_cost"
	AttrRunChecksum      = "run.checksum"
	AttrRunTermination   = "run.termination"
	AttrRunCached        = "run.cached"
	AttrVerifyViolations = "verify.violations"

	// Хранилище
	AttrDBOperation = "db.operation"
	AttrDBBackend   = "db.backend"
)

// NetworkAttributes возвращает атрибуты сгенерированной сети
func NetworkAttributes(nodes, arcs int, seed uint32) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int(AttrNetworkNodes, nodes),
		attribute.Int(AttrNetworkArcs, arcs),
		attribute.Int64(AttrNetworkSeed, int64(seed)),
	}
}

// RunAttributes возвращает атрибуты завершённого прогона
func RunAttributes(mode string, pivots, degenerate int, finalCost int64, checksum uint32, termination string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrRunMode, mode),
		attribute.Int(AttrRunPivots, pivots),
		attribute.Int(AttrRunDegenerate, degenerate),
		attribute.Int64(AttrRunFinalCost, finalCost),
		attribute.Int64(AttrRunChecksum, int64(checksum)),
		attribute.String(AttrRunTermination, termination),
	}
}

// StoreAttributes атрибуты вызова репозитория
func StoreAttributes(backend, operation string) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(AttrDBBackend, backend),
		attribute.String(AttrDBOperation, operation),
	}
}
