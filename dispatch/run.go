package dispatch

import "golang.org/x/sync/errgroup"

// RunFloors runs every floor's Engine to completion. Floors share no
// mutable state (spec.md §5), so they run as independent goroutines under
// an errgroup rather than sequentially; the simulated outcome per floor is
// identical either way since nothing crosses the floor boundary.
func RunFloors(engines []*Engine) error {
	var g errgroup.Group
	for _, eng := range engines {
		eng := eng
		g.Go(func() error {
			eng.Run()
			return nil
		})
	}
	return g.Wait()
}
