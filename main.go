package main

import (
	"context"
	"time"

	"tempokv/keeper"
	"tempokv/store"
)

func main() {
	s := store.NewMemoryStore()
	k := keeper.New(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sw := keeper.NewSweeper(s, keeper.SweeperConfig{Interval: 2 * time.Second})
	go sw.Run(ctx)

	for i := 0; i < 3; i++ {
		ok, err := k.TryOnce("otp", "user123", 3*time.Second)
		if err != nil {
			println("otp error:", err.Error())
			continue
		}
		if ok {
			println("otp sent to user123")
		} else {
			println("otp for user123 debounced, try later")
		}
		left, _, _ := k.TimeLeft("otp", "user123")
		println("seconds left:", int(left.Seconds()))
		time.Sleep(2 * time.Second)
	}

	stats, _ := k.Stats()
	println("records total:", stats.Total, "active:", stats.Active, "expired:", stats.Expired)
}
