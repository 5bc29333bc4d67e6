package tensor

import (
	"runtime"
	"sync"
)

// Below this many multiply-adds a product runs on the calling goroutine.
const parallelGemmThreshold = 1 << 15

type gemmTask struct {
	C, A, B *Mat
	rs, re  int
	done    chan struct{}
}

type gemmPool struct {
	size      int
	tasks     chan gemmTask
	doneSlots chan chan struct{}
}

var (
	gemmWorkPool     *gemmPool
	gemmWorkPoolOnce sync.Once
)

func getGemmPool() *gemmPool {
	gemmWorkPoolOnce.Do(func() {
		gemmWorkPool = newGemmPool()
	})
	return gemmWorkPool
}

func newGemmPool() *gemmPool {
	size := max(runtime.GOMAXPROCS(0), 1)
	p := &gemmPool{
		size:      size,
		tasks:     make(chan gemmTask, size*2),
		doneSlots: make(chan chan struct{}, size),
	}
	for i := 0; i < size; i++ {
		p.doneSlots <- make(chan struct{}, size)
	}
	for i := 0; i < size; i++ {
		go func() {
			for task := range p.tasks {
				gemmRangeRows(task.C, task.A, task.B, task.rs, task.re)
				task.done <- struct{}{}
			}
		}()
	}
	return p
}

// Gemm computes C = A*B, splitting output rows across a shared worker pool.
func Gemm(C, A, B *Mat) {
	if A.C != B.R || C.R != A.R || C.C != B.C {
		panic("gemm: dimension mismatch")
	}
	if C.R == 0 || C.C == 0 {
		return
	}
	if C.R*C.C*A.C < parallelGemmThreshold || C.R == 1 {
		gemmRangeRows(C, A, B, 0, C.R)
		return
	}

	pool := getGemmPool()
	workers := min(pool.size, C.R)
	chunk := (C.R + workers - 1) / workers
	done := <-pool.doneSlots

	active := 0
	for rs := 0; rs < C.R; rs += chunk {
		active++
		pool.tasks <- gemmTask{C: C, A: A, B: B, rs: rs, re: min(rs+chunk, C.R), done: done}
	}
	for i := 0; i < active; i++ {
		<-done
	}
	pool.doneSlots <- done
}

// gemmRangeRows computes rows [rs, re) of C in i-k-j order so B is read
// row by row.
func gemmRangeRows(C, A, B *Mat, rs, re int) {
	for i := rs; i < re; i++ {
		crow := C.Row(i)
		clear(crow)
		arow := A.Row(i)
		for k, a := range arow {
			if a == 0 {
				continue
			}
			brow := B.Row(k)
			for j, b := range brow {
				crow[j] += a * b
			}
		}
	}
}

// Linear computes dst = x*w + bias, where w is (in x out) and bias has
// length out. A nil bias is skipped.
func Linear(dst, x, w *Mat, bias []float32) {
	Gemm(dst, x, w)
	if bias == nil {
		return
	}
	if len(bias) != dst.C {
		panic("linear: bias length mismatch")
	}
	for i := 0; i < dst.R; i++ {
		Add(dst.Row(i), bias)
	}
}
