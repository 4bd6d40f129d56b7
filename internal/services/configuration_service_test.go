package services

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

func TestConfigurationService(t *testing.T) {
	ctx := context.Background()

	Convey("Given an empty configuration store", t, func() {
		db := store.NewMemoryDB()
		configs := store.NewMemoryStore[models.Configuration](db, "configurations",
			store.Index{Keys: []string{"key"}, Unique: true})
		svc := NewConfigurationService(configs, db)

		Convey("a missing key is a 404", func() {
			_, err := svc.Get(ctx, "imgurAccessToken")
			So(apperrors.StatusOf(err), ShouldEqual, 404)
		})

		Convey("SetConfiguration inserts and then overwrites", func() {
			So(svc.SetConfiguration(ctx, "imgurAccessToken", "a1"), ShouldBeNil)
			first, err := svc.GetConfiguration(ctx, "imgurAccessToken")
			So(err, ShouldBeNil)
			So(first.Value, ShouldEqual, "a1")

			So(svc.SetConfiguration(ctx, "imgurAccessToken", "a2"), ShouldBeNil)
			second, err := svc.GetConfiguration(ctx, "imgurAccessToken")
			So(err, ShouldBeNil)
			So(second.Value, ShouldEqual, "a2")
			So(second.ID, ShouldResemble, first.ID)
		})

		Convey("SetConfigurations applies a whole batch", func() {
			err := svc.SetConfigurations(ctx, []models.ConfigurationPair{
				{Key: "imgurAccessToken", Value: "access"},
				{Key: "imgurRefreshToken", Value: "refresh"},
			})
			So(err, ShouldBeNil)

			v, err := svc.Get(ctx, "imgurRefreshToken")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "refresh")
		})

		Convey("a failing batch leaves the original values", func() {
			So(svc.SetConfiguration(ctx, "imgurAccessToken", "original"), ShouldBeNil)

			err := svc.SetConfigurations(ctx, []models.ConfigurationPair{
				{Key: "imgurAccessToken", Value: "rotated"},
				{Key: "imgurRefreshToken", Value: "rotated"},
				{Key: "", Value: "boom"},
			})
			So(apperrors.StatusOf(err), ShouldEqual, 400)

			v, err := svc.Get(ctx, "imgurAccessToken")
			So(err, ShouldBeNil)
			So(v, ShouldEqual, "original")

			_, err = svc.Get(ctx, "imgurRefreshToken")
			So(apperrors.StatusOf(err), ShouldEqual, 404)
		})
	})
}
