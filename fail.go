package main

import (
	"log"
	"sync"
)

var (
	failStore     *Store
	failStoreLock sync.Mutex
)

func setFailStore(s *Store) {
	failStoreLock.Lock()
	defer failStoreLock.Unlock()
	failStore = s
}

// Fail logs a per-map failure and records it in the dataset index when one
// is open.
func Fail(cat string, key string, reason string) {
	log.Printf("fail: %s, %s: %s", cat, key, reason)
	failStoreLock.Lock()
	s := failStore
	failStoreLock.Unlock()
	if s == nil {
		return
	}
	if err := s.RecordFailure(cat, key, reason); err != nil {
		log.Printf("recording failure %s/%s: %v", cat, key, err)
	}
}
