package adapters

import (
	"context"
	"math/rand/v2"
	"sync"

	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/models"
	"github.com/RotemPeled/Crypto-Investor-Dashboard/internal/domain/service"
)

const SourceStatic = "static"

var FillerPool = []models.FillerItem{
	{Title: "HODL since the typo", URL: "https://i.imgflip.com/1ur9b0.jpg"},
	{Title: "This is fine (portfolio edition)", URL: "https://i.imgflip.com/wxica.jpg"},
	{Title: "Buy high, sell low", URL: "https://i.imgflip.com/30b1gx.jpg"},
	{Title: "Wen moon?", URL: "https://i.imgflip.com/1g8my4.jpg"},
	{Title: "Gas fees, again", URL: "https://i.imgflip.com/26am.jpg"},
}

// FillerAdapter returns one light item from a static pool. It never fails.
type FillerAdapter struct {
	base
	pool []models.FillerItem

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewFillerAdapter(rnd *rand.Rand, opts ...Option) *FillerAdapter {
	if rnd == nil {
		rnd = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &FillerAdapter{base: newBase(opts), pool: FillerPool, rnd: rnd}
}

func (a *FillerAdapter) Key() models.SectionKey { return models.SectionFiller }

func (a *FillerAdapter) Fetch(context.Context, service.AdapterRequest) models.SectionResult {
	a.mu.Lock()
	item := a.pool[a.rnd.IntN(len(a.pool))]
	a.mu.Unlock()
	return models.SectionResult{Source: SourceStatic, Data: item}
}
