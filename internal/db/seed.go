package db

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Seed inserts demo contractors into the database: a registry pool and a
// re-engagement pool across a few trades, with plausible engagement
// history for the scorer to chew on. Intended for local runs only.
func Seed(ctx context.Context, db *pgxpool.Pool) error {
	r := rand.New(rand.NewSource(time.Now().UnixNano()))

	trades := []string{"plumbing", "electrical", "roofing", "hvac"}
	pools := []string{"registry", "re_engagement"}

	id := 0
	for _, pool := range pools {
		for _, trade := range trades {
			for i := 0; i < 8; i++ {
				id++
				contractorID := fmt.Sprintf("contractor-%03d", id)
				name := fmt.Sprintf("%s Co %d", trade, id)
				// scatter around a city center
				lat := 40.0 + r.Float64()*0.4
				lng := -105.0 + r.Float64()*0.4
				email := fmt.Sprintf("bids@%s-%d.example.com", trade, id)
				phone := ""
				if r.Intn(2) == 0 {
					phone = fmt.Sprintf("+1303555%04d", id)
				}
				webForm := ""
				if r.Intn(3) == 0 {
					webForm = fmt.Sprintf("https://%s-%d.example.com/contact", trade, id)
				}
				contacted := 0
				responded := 0
				if pool == "re_engagement" {
					contacted = 2 + r.Intn(10)
					responded = r.Intn(contacted + 1)
				}
				lastActive := time.Now().AddDate(0, 0, -r.Intn(120))
				_, err := db.Exec(ctx, `INSERT INTO contractors
    (id, name, trades, lat, lng, email, phone, web_form_url,
     contacted_count, responded_count, last_active_at, pool)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12) ON CONFLICT DO NOTHING`,
					contractorID, name, []string{trade}, lat, lng, email, phone, webForm,
					contacted, responded, lastActive, pool)
				if err != nil {
					return err
				}
			}
		}
	}
	return nil
}
