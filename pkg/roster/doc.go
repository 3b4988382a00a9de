// Package roster provides the Go definitions and Redis schema for the dark
// jedi roster shown by sithlist.
//
// # Overview
//
// A Record is one dark jedi as served by the records API. Records form a
// doubly linked chain through their master and apprentice links; the client
// walks that chain outward from an anchor record one hop at a time.
//
// A Location is the planet the tracked character is currently on. Locations
// arrive over a push channel and are replaced wholesale.
//
// # Redis Schema
//
// Fetched records may be cached in Redis, and locations may be distributed
// over Redis Pub/Sub instead of a websocket. All keys and channels are
// namespaced so several clients can share one Redis server.
//
// Records: sithlist:{namespace}:record:{id}
// Location events: sithlist:{namespace}:location_events
//
// # Usage Example
//
//	client, err := roster.NewClient(&redis.Options{Addr: "localhost:6379"}, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	if err := client.PutRecord(ctx, rec, time.Hour); err != nil {
//		log.Fatal(err)
//	}
//
//	sub, err := client.SubscribeLocationEvents(ctx)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer sub.Close()
//	for loc := range sub.Events() {
//		fmt.Println(loc.Name)
//	}
package roster
