package utils

import (
	"fmt"
	"sync"
)

// Barrier is a reusable rendezvous point for NP partitions. Wait blocks
// until all partitions arrive, then releases the whole generation.
type Barrier struct {
	np    int
	count int
	gen   int
	mu    sync.Mutex
	cond  *sync.Cond
}

func NewBarrier(NP int) (b *Barrier) {
	b = &Barrier{np: NP}
	b.cond = sync.NewCond(&b.mu)
	return
}

func (b *Barrier) Wait() {
	b.mu.Lock()
	defer b.mu.Unlock()
	gen := b.gen
	b.count++
	if b.count == b.np {
		b.count = 0
		b.gen++
		b.cond.Broadcast()
		return
	}
	for gen == b.gen {
		b.cond.Wait()
	}
}

// DynBuffer is a growable message buffer reused across exchange phases.
type DynBuffer[T any] struct {
	cells []T
}

func NewDynBuffer[T any](sizeEstimate int) *DynBuffer[T] {
	return &DynBuffer[T]{cells: make([]T, 0, sizeEstimate)}
}

func (db *DynBuffer[T]) Add(msg T)  { db.cells = append(db.cells, msg) }
func (db *DynBuffer[T]) Cells() []T { return db.cells }
func (db *DynBuffer[T]) Reset()     { db.cells = db.cells[:0] }

// MailBox is a channel-based post office for partition-to-partition messages.
// Each partition posts messages addressed to target partitions, delivers its
// outbox, then receives whatever arrived. The usage pattern within a phase is:
// for each message {PostMessage}; DeliverMyMessages; barrier; ReceiveMyMessages.
type MailBox[T any] struct {
	NP           int
	MessageChans []chan *DynBuffer[T]    // One for each partition
	PostMsgQs    []map[int]*DynBuffer[T] // One for each partition, key is target
	ReceiveMsgQs []*DynBuffer[T]         // One for each partition
	MailFlag     []bool                  // Partition has messages in its outbox
}

func NewMailBox[T any](NP int) *MailBox[T] {
	mb := &MailBox[T]{
		NP:           NP,
		MessageChans: make([]chan *DynBuffer[T], NP),
		PostMsgQs:    make([]map[int]*DynBuffer[T], NP),
		ReceiveMsgQs: make([]*DynBuffer[T], NP),
		MailFlag:     make([]bool, NP),
	}
	for n := 0; n < NP; n++ {
		mb.MessageChans[n] = make(chan *DynBuffer[T], NP) // Worst case is all-to-all
		mb.PostMsgQs[n] = make(map[int]*DynBuffer[T])
		mb.ReceiveMsgQs[n] = NewDynBuffer[T](0)
	}
	return mb
}

func (mb *MailBox[T]) PostMessage(myPart, targetPart int, msg T) {
	var (
		exists bool
		tgt    *DynBuffer[T]
	)
	if tgt, exists = mb.PostMsgQs[myPart][targetPart]; !exists {
		mb.PostMsgQs[myPart][targetPart] = NewDynBuffer[T](0)
	}
	tgt = mb.PostMsgQs[myPart][targetPart]
	tgt.Add(msg)
	if !mb.MailFlag[myPart] {
		mb.MailFlag[myPart] = true
	}
}

func (mb *MailBox[T]) DeliverMyMessages(myPart int) {
	if mb.MailFlag[myPart] {
		for targetPart, msgBuffer := range mb.PostMsgQs[myPart] {
			if targetPart < 0 || targetPart > mb.NP-1 {
				panic(fmt.Sprintf("Target partition %d out of bounds", targetPart))
			}
			mb.MessageChans[targetPart] <- msgBuffer
		}
		mb.MailFlag[myPart] = false
	}
}

func (mb *MailBox[T]) ReceiveMyMessages(myPart int) {
	for {
		select {
		case msgBuffer := <-mb.MessageChans[myPart]:
			for _, msg := range msgBuffer.Cells() {
				mb.ReceiveMsgQs[myPart].Add(msg)
			}
			msgBuffer.Reset() // Reset the originating buffer
		default:
			return
		}
	}
}

func (mb *MailBox[T]) ClearMyMessages(myPart int) {
	mb.ReceiveMsgQs[myPart].Reset()
}

// PartitionMap splits a linear index space into ParallelDegree contiguous
// partitions with a maximum imbalance of one item.
type PartitionMap struct {
	MaxIndex       int
	ParallelDegree int
	Partitions     [][2]int // Beginning and end index of partitions
}

func NewPartitionMap(ParallelDegree, maxIndex int) (pm *PartitionMap) {
	pm = &PartitionMap{
		MaxIndex:       maxIndex,
		ParallelDegree: ParallelDegree,
		Partitions:     make([][2]int, ParallelDegree),
	}
	for n := 0; n < ParallelDegree; n++ {
		pm.Partitions[n] = pm.Split1D(n)
	}
	return
}

func (pm *PartitionMap) GetBucket(kDim int) (bucketNum, min, max int) {
	// Initial guess, then walk to the containing partition
	bucketNum = int(float64(pm.ParallelDegree*kDim) / float64(pm.MaxIndex))
	for !(pm.Partitions[bucketNum][0] <= kDim && pm.Partitions[bucketNum][1] > kDim) {
		if pm.Partitions[bucketNum][0] > kDim {
			bucketNum--
		} else {
			bucketNum++
		}
		if bucketNum == -1 || bucketNum == pm.ParallelDegree {
			return -1, 0, 0
		}
	}
	min, max = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketRange(bucketNum int) (kMin, kMax int) {
	kMin, kMax = pm.Partitions[bucketNum][0], pm.Partitions[bucketNum][1]
	return
}

func (pm *PartitionMap) GetBucketDimension(bn int) (kMax int) {
	if bn == -1 {
		kMax = pm.MaxIndex
		return
	}
	var (
		k1, k2 = pm.GetBucketRange(bn)
	)
	kMax = k2 - k1
	return
}

func (pm *PartitionMap) Split1D(threadNum int) (bucket [2]int) {
	var (
		Npart            = pm.MaxIndex / (pm.ParallelDegree)
		startAdd, endAdd int
		remainder        int
	)
	remainder = pm.MaxIndex % pm.ParallelDegree
	if remainder != 0 { // spread the remainder over the first chunks evenly
		if threadNum+1 > remainder {
			startAdd = remainder
			endAdd = 0
		} else {
			startAdd = threadNum
			endAdd = 1
		}
	}
	bucket[0] = threadNum*Npart + startAdd
	bucket[1] = bucket[0] + Npart + endAdd
	return
}
