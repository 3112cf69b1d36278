// Copyright (C) 2025 Snippetia (dev@snippetia.dev)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package routes

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"github.com/snippetia/snippetia/services/api/auth"
	"github.com/snippetia/snippetia/services/api/datatypes"
	"github.com/snippetia/snippetia/services/api/handlers"
	"github.com/snippetia/snippetia/services/api/middleware"
	"github.com/snippetia/snippetia/services/api/observability"
	"github.com/snippetia/snippetia/services/api/store"
	"github.com/snippetia/snippetia/services/backup"
	"github.com/snippetia/snippetia/services/feed"
	"github.com/snippetia/snippetia/services/monetize"
	"github.com/snippetia/snippetia/services/scanner"
	"github.com/snippetia/snippetia/services/trending"
)

// Deps carries everything the route tree needs.
type Deps struct {
	Store     *store.Store
	Auth      *auth.Manager
	Scanner   *scanner.Scanner
	Trending  *trending.Service
	Monetize  *monetize.Service
	Hub       *feed.Hub
	Backup    *backup.Service
	BackupCfg handlers.BackupConfig
	Limiter   *middleware.RateLimiter
	Logger    *slog.Logger
}

func SetupRoutes(router *gin.Engine, d Deps) {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		if err := datatypes.RegisterValidations(v); err != nil {
			d.Logger.Warn("registering custom validations failed", "error", err)
		}
	}

	router.GET("/health", handlers.HealthCheck(d.Store))
	router.GET("/metrics", observability.MetricsHandler())

	authn := middleware.Authenticate(d.Auth)
	optional := middleware.OptionalAuthenticate(d.Auth)
	moderator := middleware.RequireRole(datatypes.RoleModerator, datatypes.RoleAdmin)
	admin := middleware.RequireRole(datatypes.RoleAdmin)

	// API version 1 group
	v1 := router.Group("/v1")
	if d.Limiter != nil {
		v1.Use(d.Limiter.Middleware())
	}
	{
		v1.POST("/auth/register", handlers.Register(d.Store, d.Auth))
		v1.POST("/auth/login", handlers.Login(d.Store, d.Auth))
		v1.POST("/auth/logout", authn, handlers.Logout(d.Auth))

		v1.GET("/me", authn, handlers.GetMe(d.Store))
		v1.PUT("/me", authn, handlers.UpdateProfile(d.Store))
		v1.GET("/me/subscriptions", authn, handlers.ListMySubscriptions(d.Store))

		users := v1.Group("/users")
		{
			users.GET("", authn, admin, handlers.ListUsers(d.Store))
			users.GET("/:id", optional, handlers.GetProfile(d.Store))
			users.POST("/:id/follow", authn, handlers.FollowUser(d.Store, d.Hub))
			users.DELETE("/:id/follow", authn, handlers.UnfollowUser(d.Store))
			users.GET("/:id/followers", optional, handlers.ListFollowers(d.Store))
			users.GET("/:id/following", optional, handlers.ListFollowing(d.Store))
			users.GET("/:id/showcases", optional, handlers.ListUserShowcases(d.Store))
		}

		snippets := v1.Group("/snippets")
		{
			snippets.POST("", authn, handlers.CreateSnippet(d.Store, d.Scanner, d.Hub))
			snippets.GET("", optional, handlers.ListSnippets(d.Store))
			snippets.GET("/:id", optional, handlers.GetSnippet(d.Store))
			snippets.GET("/:id/raw", optional, handlers.GetRawContent(d.Store))
			snippets.PUT("/:id", authn, handlers.UpdateSnippetMeta(d.Store))
			snippets.DELETE("/:id", authn, handlers.DeleteSnippet(d.Store))
			snippets.POST("/:id/versions", authn, handlers.AddVersion(d.Store, d.Scanner))
			snippets.GET("/:id/versions", optional, handlers.ListVersions(d.Store))
			snippets.GET("/:id/diff", optional, handlers.DiffVersions(d.Store))
			snippets.POST("/:id/like", authn, handlers.LikeSnippet(d.Store, d.Hub))
			snippets.DELETE("/:id/like", authn, handlers.UnlikeSnippet(d.Store, d.Hub))
			snippets.GET("/:id/likes", optional, handlers.ListLikers(d.Store))
			snippets.POST("/:id/star", authn, handlers.StarSnippet(d.Store, d.Hub))
			snippets.DELETE("/:id/star", authn, handlers.UnstarSnippet(d.Store, d.Hub))
			snippets.POST("/:id/comments", authn, handlers.CreateComment(d.Store, d.Scanner, d.Hub))
			snippets.GET("/:id/comments", optional, handlers.ListComments(d.Store))
			snippets.DELETE("/:id/comments/:commentId", authn, handlers.DeleteComment(d.Store))
		}

		channels := v1.Group("/channels")
		{
			channels.POST("", authn, handlers.CreateChannel(d.Store))
			channels.GET("", optional, handlers.ListChannels(d.Store))
			channels.GET("/:slug", optional, handlers.GetChannel(d.Store))
			channels.PUT("/:slug", authn, handlers.UpdateChannel(d.Store))
			channels.DELETE("/:slug", authn, handlers.DeleteChannel(d.Store))
			channels.POST("/:slug/follow", authn, handlers.FollowChannel(d.Store))
			channels.DELETE("/:slug/follow", authn, handlers.UnfollowChannel(d.Store))
			channels.POST("/:slug/subscribe", authn, handlers.Subscribe(d.Store, d.Monetize, d.Hub))
			channels.GET("/:slug/subscribers", authn, handlers.ListChannelSubscribers(d.Store))
			channels.POST("/:slug/events", authn, handlers.CreateEvent(d.Store, d.Hub))
			channels.GET("/:slug/events", optional, handlers.ListChannelEvents(d.Store))
		}

		subscriptions := v1.Group("/subscriptions")
		{
			subscriptions.PUT("/:id", authn, handlers.ChangeSubscriptionTier(d.Monetize))
			subscriptions.DELETE("/:id", authn, handlers.CancelSubscription(d.Monetize))
		}

		events := v1.Group("/events")
		{
			events.POST("/:id/register", authn, handlers.RegisterForEvent(d.Store))
			events.DELETE("/:id/register", authn, handlers.UnregisterFromEvent(d.Store))
			events.DELETE("/:id", authn, handlers.CancelEvent(d.Store))
		}

		showcases := v1.Group("/showcases")
		{
			showcases.POST("", authn, handlers.CreateShowcase(d.Store))
			showcases.GET("/:id", optional, handlers.GetShowcase(d.Store))
			showcases.PUT("/:id", authn, handlers.UpdateShowcase(d.Store))
			showcases.DELETE("/:id", authn, handlers.DeleteShowcase(d.Store))
		}

		reports := v1.Group("/reports")
		{
			reports.POST("", authn, handlers.CreateReport(d.Store, d.Logger))
			reports.GET("", authn, moderator, handlers.ListOpenReports(d.Store))
			reports.GET("/:id", authn, moderator, handlers.GetReport(d.Store))
			reports.POST("/:id/resolve", authn, moderator, handlers.ResolveReport(d.Store, d.Logger))
		}

		v1.GET("/trending", handlers.Trending(d.Trending))
		v1.GET("/feed/ws", feed.Handler(d.Hub, d.Logger))

		admin1 := v1.Group("/admin", authn, admin)
		{
			admin1.POST("/backups", handlers.TriggerBackup(d.Backup, d.BackupCfg, d.Logger))
		}
	}
}
