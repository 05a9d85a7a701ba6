package main

import (
	"context"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rl1809/flashsale-engine/internal/adapter/storage"
	"github.com/rl1809/flashsale-engine/internal/config"
	"github.com/rl1809/flashsale-engine/internal/core/domain"
	"github.com/rl1809/flashsale-engine/internal/core/service"
	"github.com/rl1809/flashsale-engine/internal/pkg/clock"
	"github.com/rl1809/flashsale-engine/internal/pkg/eventbus"
	"github.com/rl1809/flashsale-engine/internal/pkg/logger"
)

const (
	saleID        = "flash-sale-item"
	initialStock  = 20
	totalRequests = 50
	queueSize     = 100
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	cfg.Log.Level = "warn"
	zl, err := logger.New(cfg.Log)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer zl.Sync()

	clk := clock.NewRealClock()
	bus := eventbus.New(zl)
	defer bus.Close()
	jobs := service.NewDispatcher(zl, cfg.Worker.Count, queueSize, cfg.Worker.JobTimeout)

	// Mirror stock into Redis when it is configured
	var redisAdapter *storage.RedisAdapter
	if cfg.Redis.Addr != "" {
		rdb, err := storage.OpenRedis(ctx, storage.RedisOptions{Addr: cfg.Redis.Addr, PoolSize: cfg.Redis.PoolSize})
		if err != nil {
			log.Fatalf("failed to connect redis: %v", err)
		}
		defer rdb.Close()
		redisAdapter = storage.NewRedisAdapter(rdb)

		mirrorSync := service.NewStockMirrorSync(redisAdapter, bus, jobs, zl)
		mirrorSync.Start(nil)
		defer mirrorSync.Stop()
	}

	store := service.NewFlashSaleStore(bus, clk, zl)
	deliveries := storage.NewMemoryDeliveries()
	checkout := service.NewCheckoutService(store, bus, deliveries, storage.NewMemoryIdempotency(clk), jobs, clk, zl)

	// a fresh id per run keeps old mirror tombstones out of the way
	id := saleID + "-" + uuid.NewString()[:8]
	if _, err := store.Add(domain.Sale{
		ID:       id,
		Product:  "Flash Sale Item",
		Price:    decimal.NewFromInt(99),
		OldPrice: decimal.NewFromInt(199),
		Total:    initialStock,
		EndTime:  clk.Now().Add(time.Hour),
	}); err != nil {
		log.Fatalf("failed to create sale: %v", err)
	}

	// Counters
	var successCount atomic.Int32
	var failCount atomic.Int32

	// Spawn concurrent requests
	var wg sync.WaitGroup
	start := time.Now()

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func(userID int) {
			defer wg.Done()

			_, err := checkout.Purchase(ctx, service.PurchaseRequest{
				RequestID:  uuid.NewString(),
				CustomerID: fmt.Sprintf("user-%d", userID),
				SaleID:     id,
				Quantity:   1,
			})
			if err == nil {
				successCount.Add(1)
			} else {
				failCount.Add(1)
			}
		}(i)
	}

	wg.Wait()
	elapsed := time.Since(start)
	jobs.Close()

	// Results
	success := successCount.Load()
	fail := failCount.Load()

	fmt.Println("========== STRESS TEST RESULTS ==========")
	fmt.Printf("Initial Stock:    %d\n", initialStock)
	fmt.Printf("Total Requests:   %d\n", totalRequests)
	fmt.Printf("Successful:       %d\n", success)
	fmt.Printf("Failed:           %d\n", fail)
	fmt.Printf("Deliveries:       %d\n", deliveries.Count())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("==========================================")

	// Assertions
	if success == int32(initialStock) && fail == int32(totalRequests-initialStock) {
		fmt.Printf("PASS: Exactly %d orders succeeded, %d failed\n", initialStock, totalRequests-initialStock)
	} else {
		fmt.Printf("FAIL: Expected %d success/%d fail, got %d/%d\n",
			initialStock, totalRequests-initialStock, success, fail)
	}

	sale, err := store.Get(id)
	if err != nil {
		log.Fatalf("failed to read sale: %v", err)
	}
	if sale.RemainingStock() == 0 {
		fmt.Println("PASS: Stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected stock 0, got %d\n", sale.RemainingStock())
	}

	if redisAdapter == nil {
		return
	}
	mirrored, ok, err := redisAdapter.GetStock(ctx, id)
	if err != nil {
		zl.Error("failed to read mirrored stock", zap.Error(err))
		return
	}
	fmt.Printf("Final Redis Stock: %d (present: %v)\n", mirrored, ok)
	if ok && mirrored == 0 {
		fmt.Println("PASS: Mirrored stock depleted to 0")
	} else {
		fmt.Printf("FAIL: Expected mirrored stock 0, got %d\n", mirrored)
	}
}
