package main

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// workGroup is a rectangle of work items executed by one host worker.
type workGroup struct {
	x0, y0 int
	w, h   int
}

// splitWorkGroups partitions a 1-D or 2-D global range into groups of the
// local shape. The global size must be a whole number of groups.
func splitWorkGroups(global, local []int) ([]workGroup, error) {
	if len(global) == 0 || len(global) > 2 {
		return nil, fmt.Errorf("host runtime supports 1 or 2 dimensions, got %d", len(global))
	}
	if len(local) != len(global) {
		return nil, fmt.Errorf("local shape has %d dimensions, global has %d", len(local), len(global))
	}
	gx, lx := global[0], local[0]
	gy, ly := 1, 1
	if len(global) == 2 {
		gy, ly = global[1], local[1]
	}
	if lx < 1 || ly < 1 {
		return nil, fmt.Errorf("local shape %v has an empty dimension", local)
	}
	if gx%lx != 0 || gy%ly != 0 {
		return nil, fmt.Errorf("global size %v is not a multiple of local size %v", global, local)
	}
	groups := make([]workGroup, 0, (gx/lx)*(gy/ly))
	for y := 0; y < gy; y += ly {
		for x := 0; x < gx; x += lx {
			groups = append(groups, workGroup{x0: x, y0: y, w: lx, h: ly})
		}
	}
	return groups, nil
}

// assignWorkGroups distributes groups across workers in round robin fashion.
func assignWorkGroups(workerCount int, groups []workGroup) [][]workGroup {
	if workerCount < 1 {
		workerCount = 1
	}
	if workerCount > len(groups) {
		workerCount = len(groups)
	}
	batches := make([][]workGroup, workerCount)
	for idx, g := range groups {
		batches[idx%workerCount] = append(batches[idx%workerCount], g)
	}
	return batches
}

// runWorkGroups executes item for every work item and waits for all
// workers. A panicking kernel body is reported as an error.
func runWorkGroups(workerCount int, groups []workGroup, item func(x, y int)) error {
	var eg errgroup.Group
	for _, batch := range assignWorkGroups(workerCount, groups) {
		eg.Go(func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("host kernel panicked: %v", r)
				}
			}()
			for _, g := range batch {
				for y := g.y0; y < g.y0+g.h; y++ {
					for x := g.x0; x < g.x0+g.w; x++ {
						item(x, y)
					}
				}
			}
			return nil
		})
	}
	return eg.Wait()
}
