package services

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/communitynostalgiaproject/nostalgia-server/internal/apperrors"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/models"
	"github.com/communitynostalgiaproject/nostalgia-server/internal/store"
)

func newBanService(maxBans int) *BanService {
	db := store.NewMemoryDB()
	bans := store.NewMemoryStore[models.Ban](db, "bans", store.Index{Keys: []string{"userId"}, Unique: true})
	return NewBanService(bans, maxBans)
}

func TestBanLifecycle(t *testing.T) {
	ctx := context.Background()

	Convey("Given a user who was never banned", t, func() {
		svc := newBanService(3)
		userID := primitive.NewObjectID()

		Convey("they are not reported as banned", func() {
			banned, err := svc.IsBanned(ctx, userID)
			So(err, ShouldBeNil)
			So(banned, ShouldBeFalse)
		})

		Convey("looking up their ban is a 404", func() {
			_, err := svc.Get(ctx, userID)
			So(apperrors.StatusOf(err), ShouldEqual, 404)
		})

		Convey("reinstating them is a conflict", func() {
			_, err := svc.Reinstate(ctx, userID)
			So(apperrors.StatusOf(err), ShouldEqual, 409)
		})

		Convey("banning without a reason is rejected", func() {
			_, err := svc.Ban(ctx, userID, "")
			So(apperrors.StatusOf(err), ShouldEqual, 400)
		})

		Convey("banning them creates an active record with count 1", func() {
			ban, err := svc.Ban(ctx, userID, "spam")
			So(err, ShouldBeNil)
			So(ban.Status, ShouldEqual, models.BanActive)
			So(ban.BanCount, ShouldEqual, 1)

			banned, err := svc.IsBanned(ctx, userID)
			So(err, ShouldBeNil)
			So(banned, ShouldBeTrue)

			Convey("banning again while active is a conflict", func() {
				_, err := svc.Ban(ctx, userID, "more spam")
				So(apperrors.StatusOf(err), ShouldEqual, 409)

				stored, err := svc.Get(ctx, userID)
				So(err, ShouldBeNil)
				So(stored.BanCount, ShouldEqual, 1)
				So(stored.Reason, ShouldEqual, "spam")
			})

			Convey("reinstating restores the record", func() {
				ban, err := svc.Reinstate(ctx, userID)
				So(err, ShouldBeNil)
				So(ban.Status, ShouldEqual, models.BanRestored)

				Convey("reinstating twice is a conflict", func() {
					_, err := svc.Reinstate(ctx, userID)
					So(apperrors.StatusOf(err), ShouldEqual, 409)
				})

				Convey("banning again reactivates and increments the count", func() {
					ban, err := svc.Ban(ctx, userID, "offensive")
					So(err, ShouldBeNil)
					So(ban.Status, ShouldEqual, models.BanActive)
					So(ban.BanCount, ShouldEqual, 2)
					So(ban.Reason, ShouldEqual, "offensive")

					stored, err := svc.Get(ctx, userID)
					So(err, ShouldBeNil)
					So(stored.ID, ShouldResemble, ban.ID)
					So(stored.BanCount, ShouldEqual, 2)
				})
			})
		})
	})

	Convey("Given a user banned the maximum number of times", t, func() {
		svc := newBanService(2)
		userID := primitive.NewObjectID()

		_, err := svc.Ban(ctx, userID, "first")
		So(err, ShouldBeNil)
		_, err = svc.Reinstate(ctx, userID)
		So(err, ShouldBeNil)
		_, err = svc.Ban(ctx, userID, "second")
		So(err, ShouldBeNil)

		Convey("reinstating is a conflict and leaves the ban active", func() {
			_, err := svc.Reinstate(ctx, userID)
			So(apperrors.StatusOf(err), ShouldEqual, 409)

			stored, err := svc.Get(ctx, userID)
			So(err, ShouldBeNil)
			So(stored.Status, ShouldEqual, models.BanActive)
			So(stored.BanCount, ShouldEqual, 2)
		})
	})
}
