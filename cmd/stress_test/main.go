package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"net/http"
	"sync"
	"sync/atomic"
	"time"
)

type checkoutRequest struct {
	ActorID   string `json:"actor_id"`
	ActorName string `json:"actor_name"`
	Lines     []struct {
		ProductID string `json:"product_id"`
		Quantity  int    `json:"quantity"`
	} `json:"lines"`
}

type checkoutResponse struct {
	Disposition string `json:"disposition"`
	Message     string `json:"message"`
}

func main() {
	baseURL := flag.String("url", "http://localhost:8080", "server base URL")
	productID := flag.String("product", "demo-product", "product to sell")
	total := flag.Int("n", 50, "number of checkouts")
	workers := flag.Int("c", 10, "concurrent workers")
	flag.Parse()

	client := &http.Client{Timeout: 10 * time.Second}

	var submitted, queued, rejected, failed atomic.Int32

	jobs := make(chan int)
	var wg sync.WaitGroup
	start := time.Now()

	for w := 0; w < *workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				req := checkoutRequest{
					ActorID:   fmt.Sprintf("cashier-%d", i%3),
					ActorName: "stress",
				}
				req.Lines = append(req.Lines, struct {
					ProductID string `json:"product_id"`
					Quantity  int    `json:"quantity"`
				}{ProductID: *productID, Quantity: 1})

				body, _ := json.Marshal(req)
				resp, err := client.Post(*baseURL+"/api/checkout", "application/json", bytes.NewReader(body))
				if err != nil {
					failed.Add(1)
					continue
				}

				var out checkoutResponse
				json.NewDecoder(resp.Body).Decode(&out)
				resp.Body.Close()

				switch {
				case resp.StatusCode == http.StatusOK && out.Disposition == "submitted":
					submitted.Add(1)
				case resp.StatusCode == http.StatusOK && out.Disposition == "queued":
					queued.Add(1)
				case resp.StatusCode == http.StatusUnprocessableEntity:
					rejected.Add(1)
				default:
					failed.Add(1)
				}
			}
		}()
	}

	for i := 0; i < *total; i++ {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	elapsed := time.Since(start)

	fmt.Println("========== CHECKOUT LOAD RESULTS ==========")
	fmt.Printf("Total Requests:   %d\n", *total)
	fmt.Printf("Submitted:        %d\n", submitted.Load())
	fmt.Printf("Queued:           %d\n", queued.Load())
	fmt.Printf("Rejected:         %d\n", rejected.Load())
	fmt.Printf("Failed:           %d\n", failed.Load())
	fmt.Printf("Duration:         %v\n", elapsed)
	fmt.Println("===========================================")

	if failed.Load() > 0 {
		log.Fatalf("FAIL: %d requests errored", failed.Load())
	}
	fmt.Println("PASS: every checkout finished with a disposition or a clean rejection")
}
