package statistics

import (
	"fmt"
	"log"
	"strconv"
	"time"

	"github.com/aprendia/aprendia/app/models"
	"github.com/aprendia/aprendia/internal/pkg/cache"
	"github.com/aprendia/aprendia/internal/pkg/database"
)

const (
	CacheKeyAccountsTotal = "statistics:accounts:total"
	CacheKeyAccountsDaily = "statistics:accounts:daily:%s" // Format with date YYYY-MM-DD
	CacheExpiration       = 30 * time.Minute
)

// UpdateStatisticsCache refreshes the registration counters in the cache.
// Called asynchronously after account creation.
func UpdateStatisticsCache() error {
	db := database.GetDB()

	var totalAccounts int64
	if err := db.Model(&models.Account{}).Count(&totalAccounts).Error; err != nil {
		log.Printf("Error counting total accounts: %v", err)
		return err
	}

	var todayAccounts int64
	today := time.Now().Format("2006-01-02")
	todayStart, _ := time.Parse("2006-01-02", today)
	todayEnd := todayStart.Add(24 * time.Hour)

	if err := db.Model(&models.Account{}).Where("created_at BETWEEN ? AND ?", todayStart, todayEnd).Count(&todayAccounts).Error; err != nil {
		log.Printf("Error counting today's registrations: %v", err)
		return err
	}

	if err := cache.Set(CacheKeyAccountsTotal, strconv.FormatInt(totalAccounts, 10), CacheExpiration); err != nil {
		log.Printf("Error caching total accounts: %v", err)
		return err
	}

	dailyKey := fmt.Sprintf(CacheKeyAccountsDaily, today)
	if err := cache.Set(dailyKey, strconv.FormatInt(todayAccounts, 10), CacheExpiration); err != nil {
		log.Printf("Error caching today's registrations: %v", err)
		return err
	}

	return nil
}

// GetTotalAccounts returns the total number of accounts from cache or database
func GetTotalAccounts() int {
	val, err := cache.Get(CacheKeyAccountsTotal)
	if err != nil {
		var count int64
		db := database.GetDB()
		if err := db.Model(&models.Account{}).Count(&count).Error; err != nil {
			log.Printf("Error counting total accounts: %v", err)
			return 0
		}

		if err := cache.Set(CacheKeyAccountsTotal, strconv.FormatInt(count, 10), CacheExpiration); err != nil {
			log.Printf("Error caching total accounts: %v", err)
		}

		return int(count)
	}

	count, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0
	}

	return int(count)
}
