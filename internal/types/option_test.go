package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type OptionTestSuite struct {
	suite.Suite
}

func TestOptionSuite(t *testing.T) {
	suite.Run(t, new(OptionTestSuite))
}

func (suite *OptionTestSuite) contract(optType OptionType, strike, premium float64) OptionContract {
	return OptionContract{
		Symbol:     "AAPL",
		Type:       optType,
		Strike:     strike,
		Expiration: time.Date(2024, 6, 21, 16, 0, 0, 0, time.UTC),
		Contracts:  2,
		Premium:    premium,
	}
}

func (suite *OptionTestSuite) TestCallInTheMoney() {
	opt := suite.contract(OptionTypeCall, 100, 3)
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// intrinsic 10, minus premium 3, times 2 contracts of 100 shares
	suite.InDelta(1400.0, opt.Value(110, asOf), 1e-9)
}

func (suite *OptionTestSuite) TestCallOutOfTheMoney() {
	opt := suite.contract(OptionTypeCall, 100, 3)
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	// No intrinsic value; the paid premium is carried as a loss
	suite.InDelta(-600.0, opt.Value(90, asOf), 1e-9)
}

func (suite *OptionTestSuite) TestPutInTheMoney() {
	opt := suite.contract(OptionTypePut, 100, 2)
	asOf := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	suite.InDelta(1600.0, opt.Value(90, asOf), 1e-9)
}

func (suite *OptionTestSuite) TestValueAtExpirationStillCounts() {
	opt := suite.contract(OptionTypeCall, 100, 3)

	suite.InDelta(1400.0, opt.Value(110, opt.Expiration), 1e-9)
}

func (suite *OptionTestSuite) TestValueZeroAfterExpiration() {
	opt := suite.contract(OptionTypeCall, 100, 3)
	after := opt.Expiration.Add(time.Minute)

	suite.Equal(0.0, opt.Value(110, after))
}
