// Command seed-performance fills the database with mailed demo campaigns, their
// recipients and form conversions so campaign percentile rankings have peers.
//
// Each demo store mails six campaigns of growing size. Conversion rates follow a
// diminishing-returns curve around the store's base rate with random noise.
//
// Flags:
//
//	--email    owner of the seeded campaigns (created when missing)
//	--seed     random seed, 0 picks one from the clock
//	--dry-run  print the plan without writing to the database
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/amirphl/mailpiece/config"
	"github.com/amirphl/mailpiece/models"
	"github.com/amirphl/mailpiece/repository"
	"github.com/amirphl/mailpiece/utils"
	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	halfSaturation = 2000.0
	noiseSpread    = 0.4
	minRatePercent = 0.5
	conversionType = "form_submission"
	contactBatch   = 500
)

type store struct {
	name     string
	city     string
	state    string
	zip      string
	baseRate float64 // percent
}

var (
	stores = []store{
		{name: "Portland Central", city: "Portland", state: "OR", zip: "97205", baseRate: 5.0},
		{name: "Phoenix North", city: "Phoenix", state: "AZ", zip: "85023", baseRate: 3.0},
		{name: "Downtown Miami Store", city: "Miami", state: "FL", zip: "33131", baseRate: 2.5},
	}
	quantities = []int{300, 500, 800, 1200, 2000, 3500}
)

// deployment is one planned campaign
type deployment struct {
	store       store
	index       int
	quantity    int
	rate        float64
	conversions int
	createdAt   time.Time
}

func main() {
	emailFlag := flag.String("email", "performance-seed@mailpiece.local", "owner of the seeded campaigns")
	seedFlag := flag.Uint64("seed", 0, "random seed (0 picks one from the clock)")
	dryRunFlag := flag.Bool("dry-run", false, "print the plan without writing to the database")
	flag.Parse()

	seed := *seedFlag
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	plan := planDeployments(rng, utils.UTCNow())
	printPlan(plan)
	if *dryRunFlag {
		return
	}

	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := gorm.Open(postgres.Open(cfg.Database.DSN()), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Warn),
	})
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	s := &seeder{
		rng:          rng,
		transactor:   repository.NewTransactor(db),
		customers:    repository.NewCustomerRepository(db),
		templates:    repository.NewDesignTemplateRepository(db),
		lists:        repository.NewRecipientListRepository(db),
		contacts:     repository.NewContactRepository(db),
		campaigns:    repository.NewCampaignRepository(db),
		trackingRepo: repository.NewTrackingEventRepository(db),
	}
	if err := s.run(ctx, *emailFlag, plan); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	rows, err := s.trackingRepo.AllCampaignPerformance(ctx)
	if err != nil {
		log.Fatalf("Failed to verify seeded data: %v", err)
	}
	log.Printf("Seeding complete: %d campaigns with recipients are now ranked", len(rows))
}

// expectedRate returns the conversion percentage for a mailing of quantity pieces.
// Small mailings convert at half the base rate and approach the base rate as they grow.
func expectedRate(baseRate float64, quantity int) float64 {
	q := math.Pow(float64(quantity), 0.9)
	saturation := q / (math.Pow(halfSaturation, 0.9) + q)
	return baseRate * (0.5 + 0.5*saturation)
}

// noisyRate perturbs the expected rate by up to ±20% and never drops below the floor
func noisyRate(rng *rand.Rand, baseRate float64, quantity int) float64 {
	noise := (rng.Float64() - 0.5) * noiseSpread
	return math.Max(minRatePercent, expectedRate(baseRate, quantity)*(1+noise))
}

func conversionCount(quantity int, ratePercent float64) int {
	n := int(math.Round(float64(quantity) * ratePercent / 100))
	return min(n, quantity)
}

func planDeployments(rng *rand.Rand, now time.Time) []deployment {
	plan := make([]deployment, 0, len(stores)*len(quantities))
	for _, st := range stores {
		for i, quantity := range quantities {
			rate := noisyRate(rng, st.baseRate, quantity)
			plan = append(plan, deployment{
				store:       st,
				index:       i,
				quantity:    quantity,
				rate:        rate,
				conversions: conversionCount(quantity, rate),
				createdAt:   now.AddDate(0, 0, -(10 + i*15)),
			})
		}
	}
	return plan
}

func printPlan(plan []deployment) {
	var recipients, conversions int
	for _, d := range plan {
		fmt.Printf("%-22s campaign %d: %5s pieces -> %4d conversions (%.2f%%)\n",
			d.store.name, d.index+1, humanize.Comma(int64(d.quantity)), d.conversions, d.rate)
		recipients += d.quantity
		conversions += d.conversions
	}
	fmt.Printf("Planned %d campaigns, %s recipients, %s conversions\n",
		len(plan), humanize.Comma(int64(recipients)), humanize.Comma(int64(conversions)))
}

type seeder struct {
	rng          *rand.Rand
	transactor   repository.Transactor
	customers    repository.CustomerRepository
	templates    repository.DesignTemplateRepository
	lists        repository.RecipientListRepository
	contacts     repository.ContactRepository
	campaigns    repository.CampaignRepository
	trackingRepo repository.TrackingEventRepository
}

func (s *seeder) run(ctx context.Context, email string, plan []deployment) error {
	return s.transactor.WithTransaction(ctx, func(txCtx context.Context) error {
		owner, err := s.ensureOwner(txCtx, email)
		if err != nil {
			return err
		}

		template := &models.DesignTemplate{
			UUID:       uuid.New(),
			CustomerID: owner.ID,
			Name:       "Performance seed postcard",
			Width:      1800,
			Height:     1200,
			CanvasJSON: json.RawMessage(`{"version":1,"objects":[]}`),
			CreatedAt:  utils.UTCNow(),
		}
		if err := s.templates.Save(txCtx, template); err != nil {
			return fmt.Errorf("failed to save design template: %w", err)
		}

		for _, d := range plan {
			if err := s.seedDeployment(txCtx, owner.ID, template.ID, d); err != nil {
				return fmt.Errorf("%s campaign %d: %w", d.store.name, d.index+1, err)
			}
		}
		return nil
	})
}

func (s *seeder) ensureOwner(ctx context.Context, email string) (*models.Customer, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	owner, err := s.customers.ByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if owner != nil {
		return owner, nil
	}

	owner = &models.Customer{
		UUID:      uuid.New(),
		FirstName: "Performance",
		LastName:  "Seed",
		Email:     email,
		IsActive:  utils.ToPtr(true),
		IsAdmin:   utils.ToPtr(false),
		CreatedAt: utils.UTCNow(),
		UpdatedAt: utils.UTCNow(),
	}
	if err := s.customers.Save(ctx, owner); err != nil {
		return nil, fmt.Errorf("failed to create seed customer: %w", err)
	}
	return owner, nil
}

func (s *seeder) seedDeployment(ctx context.Context, ownerID, templateID uint, d deployment) error {
	list := &models.RecipientList{
		UUID:         uuid.New(),
		CustomerID:   ownerID,
		Name:         fmt.Sprintf("%s mailing %d", d.store.name, d.index+1),
		Source:       models.RecipientListSourcePurchase,
		Filters:      models.AudienceFilters{City: d.store.city, State: d.store.state},
		ContactCount: d.quantity,
		IsMockData:   true,
		CreatedAt:    d.createdAt,
	}
	if err := s.lists.Save(ctx, list); err != nil {
		return fmt.Errorf("failed to save recipient list: %w", err)
	}

	trackingIDs := make([]string, 0, d.quantity)
	batch := make([]*models.Contact, 0, contactBatch)
	for j := range d.quantity {
		trackingID := strings.ReplaceAll(uuid.NewString(), "-", "")
		trackingIDs = append(trackingIDs, trackingID)
		batch = append(batch, &models.Contact{
			RecipientListID: list.ID,
			TrackingID:      trackingID,
			FirstName:       "Customer",
			LastName:        fmt.Sprintf("#%d", j+1),
			AddressLine1:    fmt.Sprintf("%d Main St", 100+j),
			City:            d.store.city,
			State:           d.store.state,
			Zip:             d.store.zip,
			Interests:       pq.StringArray{},
			CreatedAt:       d.createdAt,
		})
		if len(batch) == contactBatch {
			if err := s.contacts.SaveBatch(ctx, batch); err != nil {
				return fmt.Errorf("failed to save contacts: %w", err)
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.contacts.SaveBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to save contacts: %w", err)
		}
	}

	campaign := &models.Campaign{
		UUID:             uuid.New(),
		CustomerID:       ownerID,
		Name:             fmt.Sprintf("%s #%d (%d pieces)", d.store.name, d.index+1, d.quantity),
		DesignTemplateID: templateID,
		RecipientListID:  list.ID,
		VariableMappings: models.VariableMappings{"customer-name": "first_name"},
		Status:           models.CampaignStatusMailed,
		ScheduledAt:      utils.ToPtr(d.createdAt),
		CreatedAt:        d.createdAt,
	}
	if err := s.campaigns.Save(ctx, campaign); err != nil {
		return fmt.Errorf("failed to save campaign: %w", err)
	}

	s.rng.Shuffle(len(trackingIDs), func(a, b int) { trackingIDs[a], trackingIDs[b] = trackingIDs[b], trackingIDs[a] })
	events := make([]*models.TrackingEvent, 0, d.conversions)
	for _, trackingID := range trackingIDs[:d.conversions] {
		events = append(events, &models.TrackingEvent{
			TrackingID:     trackingID,
			CampaignID:     utils.ToPtr(campaign.ID),
			Type:           models.TrackingEventConversion,
			ConversionType: utils.ToPtr(conversionType),
			CreatedAt:      d.createdAt,
		})
	}
	if len(events) == 0 {
		return nil
	}
	if err := s.trackingRepo.SaveBatch(ctx, events); err != nil {
		return fmt.Errorf("failed to save conversions: %w", err)
	}
	return nil
}
