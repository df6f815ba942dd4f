package utils

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPartitionMap(t *testing.T) {
	getHisto := func(K, Np int) (histo map[int]int) {
		pm := NewPartitionMap(Np, K)
		histo = make(map[int]int)
		for np := 0; np < pm.ParallelDegree; np++ {
			maxK := pm.GetBucketDimension(np)
			histo[maxK]++
		}
		return
	}
	getTotal := func(histo map[int]int) (total int) {
		for key, count := range histo {
			total += key * count
		}
		return
	}
	assert.Equal(t, map[int]int{0: 30, 1: 2}, getHisto(2, 32))
	assert.Equal(t, map[int]int{1: 32}, getHisto(32, 32))
	assert.Equal(t, map[int]int{8: 32}, getHisto(256, 32))
	assert.Equal(t, map[int]int{8: 1, 9: 31}, getHisto(287, 32))
	assert.Equal(t, 287, getTotal(getHisto(287, 32)))
	for n := 64; n < 10000; n++ {
		var (
			keys   [2]float64
			keyNum int
		)
		histo := getHisto(n, 32)
		for key := range histo {
			keys[keyNum] = float64(key)
			keyNum++
		}
		if keyNum == 2 {
			assert.Equal(t, 1., math.Abs(keys[0]-keys[1])) // Maximum imbalance of 1
		}
		assert.Equal(t, n, getTotal(histo))
	}
}

func TestPartitionMapBucketProbe(t *testing.T) {
	for maxIndex := 10; maxIndex < 1000; maxIndex++ {
		pm := NewPartitionMap(5, maxIndex)
		for k := 0; k < maxIndex; k++ {
			bn, min, max := pm.GetBucket(k)
			mmin, mmax := pm.GetBucketRange(bn)
			assert.True(t, k >= min && k < max && min == mmin && max == mmax)
		}
	}
	pm := NewPartitionMap(4, 16)
	bn, _, _ := pm.GetBucket(0)
	assert.Equal(t, 0, bn)
	bn, _, _ = pm.GetBucket(15)
	assert.Equal(t, 3, bn)
}

func TestMailBox(t *testing.T) {
	type msg struct {
		src, val int
	}
	np := 4
	mb := NewMailBox[msg](np)
	// Each partition sends its index to every other partition
	for myPart := 0; myPart < np; myPart++ {
		for target := 0; target < np; target++ {
			if target == myPart {
				continue
			}
			mb.PostMessage(myPart, target, msg{src: myPart, val: 10 * myPart})
		}
		mb.DeliverMyMessages(myPart)
	}
	for myPart := 0; myPart < np; myPart++ {
		mb.ReceiveMyMessages(myPart)
		received := mb.ReceiveMsgQs[myPart].Cells()
		assert.Equal(t, np-1, len(received))
		seen := make(map[int]bool)
		for _, m := range received {
			assert.Equal(t, 10*m.src, m.val)
			seen[m.src] = true
		}
		assert.False(t, seen[myPart])
		mb.ClearMyMessages(myPart)
		assert.Empty(t, mb.ReceiveMsgQs[myPart].Cells())
	}
}

func TestBarrier(t *testing.T) {
	var (
		np      = 8
		rounds  = 50
		b       = NewBarrier(np)
		mu      sync.Mutex
		counter int
		wg      sync.WaitGroup
	)
	// Every goroutine increments before the barrier; after each Wait all np
	// increments of that round must be visible
	wg.Add(np)
	for n := 0; n < np; n++ {
		go func() {
			defer wg.Done()
			for r := 0; r < rounds; r++ {
				mu.Lock()
				counter++
				mu.Unlock()
				b.Wait()
				mu.Lock()
				ok := counter >= (r+1)*np
				mu.Unlock()
				assert.True(t, ok)
				b.Wait()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, np*rounds, counter)
}

func TestDynBuffer(t *testing.T) {
	db := NewDynBuffer[int](2)
	db.Add(1)
	db.Add(2)
	db.Add(3)
	assert.Equal(t, []int{1, 2, 3}, db.Cells())
	db.Reset()
	assert.Empty(t, db.Cells())
	db.Add(7)
	assert.Equal(t, []int{7}, db.Cells())
}
