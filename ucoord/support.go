package ucoord

import "sync"

// NewCatalogContext returns a CatalogContext that tracks open factorization
// catalogs and coordinates orderly shutdown.  Calling Close signals Closing,
// asks every attached Catalog to close itself, and signals Done once the
// last one has detached.
func NewCatalogContext() CatalogContext {
	ctx := &catalogContext{
		attached: make(map[Catalog]struct{}),
		closing:  make(chan struct{}),
		done:     make(chan struct{}),
	}

	// The context itself holds one ref until Close so that Done cannot
	// fire while no catalogs are attached yet.
	ctx.refs.Add(1)
	go func() {
		<-ctx.Closing()
		ctx.refs.Done()
		ctx.refs.Wait()
		close(ctx.done)
	}()
	return ctx
}

type catalogContext struct {
	mu       sync.Mutex
	refs     sync.WaitGroup
	attached map[Catalog]struct{}
	closing  chan struct{}
	done     chan struct{}
}

// AttachCatalog registers an open catalog, keeping the context alive until
// the catalog detaches.
func (ctx *catalogContext) AttachCatalog(cat Catalog) {
	ctx.refs.Add(1)
	ctx.mu.Lock()
	ctx.attached[cat] = struct{}{}
	ctx.mu.Unlock()
}

// DetachCatalog releases a previously attached catalog.  Safe to call more
// than once for the same catalog.
func (ctx *catalogContext) DetachCatalog(cat Catalog) {
	ctx.mu.Lock()
	if _, open := ctx.attached[cat]; open {
		delete(ctx.attached, cat)
		ctx.refs.Done()
	}
	ctx.mu.Unlock()
}

// Closing is closed when Close has been called and attached catalogs should
// wind down.
func (ctx *catalogContext) Closing() <-chan struct{} {
	return ctx.closing
}

// Done is closed after every attached catalog has detached.
func (ctx *catalogContext) Done() <-chan struct{} {
	return ctx.done
}

// Close begins shutdown, closing each attached catalog asynchronously.
func (ctx *catalogContext) Close() {
	close(ctx.closing)
	ctx.mu.Lock()
	for cat := range ctx.attached {
		go cat.Close()
	}
	ctx.mu.Unlock()
}
