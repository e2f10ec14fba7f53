// Package netgen строит детерминированные сети для ядра симплекса.
package netgen

import (
	"fmt"

	"netsimplex/pkg/apperror"
	"netsimplex/services/simplex-svc/internal/simplex"
)

const (
	DefaultSeed  uint32 = 0xCAFEBABE
	DefaultNodes        = 64
	DefaultArcs         = 256

	// MaxNodes потенциалы с Big-M дугами должны помещаться в int32
	MaxNodes = 4096
	// MaxArcs ограничение размера запроса
	MaxArcs = 1 << 20
	// MaxRefreshWork предел nodes*(arcs+nodes): RefreshPotentials просматривает
	// все дуги для каждого узла, а textbook сеть считает потенциалы уже при
	// генерации.
	MaxRefreshWork = 1 << 26
)

// XorShift32 генератор Марсальи (13, 17, 5)
type XorShift32 struct {
	x uint32
}

// NewXorShift32 создаёт генератор; нулевое зерно залипает в нуле, это
// допустимо и воспроизводимо.
func NewXorShift32(seed uint32) *XorShift32 {
	return &XorShift32{x: seed}
}

// Next продвигает состояние и возвращает его.
func (r *XorShift32) Next() uint32 {
	r.x ^= r.x << 13
	r.x ^= r.x >> 17
	r.x ^= r.x << 5
	return r.x
}

// Params параметры генерации
type Params struct {
	Nodes int
	Arcs  int
	Seed  uint32
	Mode  simplex.Mode
}

// DefaultParams параметры эталонного ядра
func DefaultParams() Params {
	return Params{
		Nodes: DefaultNodes,
		Arcs:  DefaultArcs,
		Seed:  DefaultSeed,
		Mode:  simplex.ModeReference,
	}
}

// Validate проверяет параметры генерации
func (p Params) Validate() error {
	ve := apperror.NewValidationErrors()
	if p.Nodes < 2 {
		ve.AddErrorWithField(apperror.CodeInvalidNetwork, fmt.Sprintf("need at least 2 nodes, got %d", p.Nodes), "nodes")
	}
	if p.Nodes > MaxNodes {
		ve.AddErrorWithField(apperror.CodeNetworkTooLarge, fmt.Sprintf("at most %d nodes, got %d", MaxNodes, p.Nodes), "nodes")
	}
	if p.Arcs < 1 {
		ve.AddErrorWithField(apperror.CodeInvalidNetwork, fmt.Sprintf("need at least 1 arc, got %d", p.Arcs), "arcs")
	}
	if p.Arcs > MaxArcs {
		ve.AddErrorWithField(apperror.CodeNetworkTooLarge, fmt.Sprintf("at most %d arcs, got %d", MaxArcs, p.Arcs), "arcs")
	}
	if work := int64(p.Nodes) * int64(p.Arcs+p.Nodes); p.Nodes <= MaxNodes && p.Arcs <= MaxArcs && work > MaxRefreshWork {
		ve.AddErrorWithField(apperror.CodeNetworkTooLarge,
			fmt.Sprintf("nodes*(arcs+nodes) must not exceed %d, got %d", MaxRefreshWork, work), "arcs")
	}
	if p.Mode == simplex.ModeReference && p.Nodes >= 2 && p.Arcs < p.Nodes-1 {
		ve.AddErrorWithField(apperror.CodeInsufficientArcs,
			fmt.Sprintf("star tree needs %d arcs, got %d", p.Nodes-1, p.Arcs), "arcs")
	}
	if p.Mode != simplex.ModeReference && p.Mode != simplex.ModeTextbook {
		ve.AddErrorWithField(apperror.CodeInvalidMode, fmt.Sprintf("unknown mode %s", p.Mode), "mode")
	}
	if ve.HasErrors() {
		return ve.Errors[0]
	}
	return nil
}

// Generate строит сеть и начальное остовное дерево.
//
// Узлы 1..N/2 получают предложение 10+x%90, остальные спрос той же формы;
// последний узел добирает остаток, чтобы сумма балансов была нулевой.
// Каждая дуга берёт хвост и голову из двух последовательных чисел; петля
// разрывается сдвигом головы на следующий узел. Стоимость и пропускная
// способность берутся из числа головы.
func Generate(p Params) (*simplex.Network, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	rng := NewXorShift32(p.Seed)
	n := uint32(p.Nodes)

	extra := 0
	if p.Mode == simplex.ModeTextbook {
		extra = p.Nodes - 1
	}

	nodes := make([]simplex.Node, p.Nodes)
	for i := range nodes {
		nodes[i] = simplex.Node{Pred: simplex.NoNode, BasicArc: simplex.NoArc}
	}

	var total int32
	for i := 0; i < p.Nodes/2; i++ {
		x := rng.Next()
		nodes[i].Balance = 10 + int32(x%90)
		total += nodes[i].Balance
	}
	for i := p.Nodes / 2; i < p.Nodes; i++ {
		x := rng.Next()
		demand := 10 + int32(x%90)
		nodes[i].Balance = -demand
		total -= demand
	}
	nodes[p.Nodes-1].Balance -= total

	arcs := make([]simplex.Arc, p.Arcs, p.Arcs+extra)
	for i := range arcs {
		tail := 1 + rng.Next()%n
		x := rng.Next()
		head := 1 + x%n
		if tail == head {
			head = head%n + 1
		}
		arcs[i] = simplex.Arc{
			Tail:     int32(tail - 1),
			Head:     int32(head - 1),
			Cost:     1 + int32(x%100),
			Capacity: 50 + int32(x%200),
			State:    simplex.AtLower,
		}
	}

	if p.Mode == simplex.ModeTextbook {
		return artificialTree(nodes, arcs)
	}
	return starTree(nodes, arcs), nil
}

// starTree эталонное звёздное дерево: узел i (1-based, i >= 2) подвешен к
// корню через дугу i-2, какой бы она ни была.
func starTree(nodes []simplex.Node, arcs []simplex.Arc) *simplex.Network {
	for i := 1; i < len(nodes); i++ {
		nodes[i].Pred = 0
		nodes[i].BasicArc = int32(i - 1)
		nodes[i].Orientation = simplex.Down
		nodes[i].Depth = 1
		arcs[i-1].State = simplex.Basic
	}
	return simplex.NewNetwork(nodes, arcs, 0)
}

// BigM стоимость искусственной дуги: дороже любого простого пути из
// сгенерированных дуг.
func BigM(numNodes int) int32 {
	return int32(100*numNodes + 1)
}

// artificialTree допустимый стартовый базис из искусственных дуг между
// каждым узлом и корнем.
func artificialTree(nodes []simplex.Node, arcs []simplex.Arc) (*simplex.Network, error) {
	realArcs := int32(len(arcs))
	bigM := BigM(len(nodes))

	var supply int32
	for i := range nodes {
		if nodes[i].Balance > 0 {
			supply += nodes[i].Balance
		}
	}

	for i := 1; i < len(nodes); i++ {
		b := nodes[i].Balance
		arc := simplex.Arc{Cost: bigM, Capacity: supply, State: simplex.Basic}
		if b >= 0 {
			arc.Tail, arc.Head, arc.Flow = int32(i), 0, b
			nodes[i].Orientation = simplex.Up
		} else {
			arc.Tail, arc.Head, arc.Flow = 0, int32(i), -b
			nodes[i].Orientation = simplex.Down
		}
		nodes[i].Pred = 0
		nodes[i].BasicArc = int32(len(arcs))
		nodes[i].Depth = 1
		arcs = append(arcs, arc)
	}

	net := simplex.NewNetworkWithArtificial(nodes, arcs, 0, realArcs)
	if err := simplex.RefreshPotentials(net, simplex.ModeTextbook); err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "initial potentials")
	}
	return net, nil
}
