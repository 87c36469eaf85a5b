package registry

import "github.com/redis/go-redis/v9"

// Every mutation below runs as one script execution, which is the store's
// atomic conditional-write primitive: state is checked and rewritten with no
// window for a competing writer, and the change event is published from
// inside the same execution. Version increases monotonically per seat so
// feed consumers can discard stale or duplicate events.

var tryHoldScript = redis.NewScript(`
	-- KEYS = [seat key, trip index set, change channel, active trips set]
	-- ARGV = [holderId, ttlSeconds, nowUnix, seatId, tripId]

	local state = redis.call("HGET", KEYS[1], "state")
	local holder = redis.call("HGET", KEYS[1], "holder")
	local expires = tonumber(redis.call("HGET", KEYS[1], "expires_at") or "0")
	local now = tonumber(ARGV[3])

	if state == "admin_blocked" then
		return "BLOCKED"
	end

	if state == "booked" then
		return "CONFLICT"
	end

	if state == "temp_held" and expires > now and holder ~= ARGV[1] then
		return "CONFLICT"
	end

	local version = tonumber(redis.call("HGET", KEYS[1], "version") or "0") + 1
	local expiresAt = now + tonumber(ARGV[2])

	redis.call("HSET", KEYS[1],
		"state", "temp_held",
		"holder", ARGV[1],
		"version", version,
		"expires_at", expiresAt,
		"updated_at", now)
	redis.call("HDEL", KEYS[1], "booking_id")
	redis.call("SADD", KEYS[2], ARGV[4])
	redis.call("SADD", KEYS[4], ARGV[5])

	local op = "update"
	if version == 1 then
		op = "insert"
	end

	redis.call("PUBLISH", KEYS[3], cjson.encode({
		trip_id = ARGV[5],
		seat_id = ARGV[4],
		op = op,
		state = "temp_held",
		holder = ARGV[1],
		version = version,
		expires_at = expiresAt,
	}))

	return "OK"
`)

var confirmBookingScript = redis.NewScript(`
	-- KEYS = [seat key, change channel]
	-- ARGV = [holderId, bookingId, nowUnix, seatId, tripId]

	local state = redis.call("HGET", KEYS[1], "state")
	local holder = redis.call("HGET", KEYS[1], "holder")
	local expires = tonumber(redis.call("HGET", KEYS[1], "expires_at") or "0")
	local now = tonumber(ARGV[3])

	if state ~= "temp_held" or holder ~= ARGV[1] then
		return "NOT_HELD"
	end

	if expires > 0 and expires <= now then
		return "EXPIRED"
	end

	local version = tonumber(redis.call("HGET", KEYS[1], "version") or "0") + 1

	redis.call("HSET", KEYS[1],
		"state", "booked",
		"booking_id", ARGV[2],
		"version", version,
		"updated_at", now)
	redis.call("HDEL", KEYS[1], "expires_at")

	redis.call("PUBLISH", KEYS[2], cjson.encode({
		trip_id = ARGV[5],
		seat_id = ARGV[4],
		op = "update",
		state = "booked",
		holder = ARGV[1],
		booking_id = ARGV[2],
		version = version,
	}))

	return "OK"
`)

var releaseHoldScript = redis.NewScript(`
	-- KEYS = [seat key, change channel]
	-- ARGV = [holderId, nowUnix, seatId, tripId]

	local state = redis.call("HGET", KEYS[1], "state")
	local holder = redis.call("HGET", KEYS[1], "holder")

	if state ~= "temp_held" or holder ~= ARGV[1] then
		return "NOOP"
	end

	local version = tonumber(redis.call("HGET", KEYS[1], "version") or "0") + 1

	redis.call("HSET", KEYS[1],
		"state", "available",
		"version", version,
		"updated_at", ARGV[2])
	redis.call("HDEL", KEYS[1], "holder", "booking_id", "expires_at")

	redis.call("PUBLISH", KEYS[2], cjson.encode({
		trip_id = ARGV[4],
		seat_id = ARGV[3],
		op = "update",
		state = "available",
		version = version,
	}))

	return "OK"
`)

var setBlockedScript = redis.NewScript(`
	-- KEYS = [seat key, trip index set, change channel, active trips set]
	-- ARGV = [blocked ("1"/"0"), nowUnix, seatId, tripId]

	local version = tonumber(redis.call("HGET", KEYS[1], "version") or "0") + 1
	local state = "available"
	if ARGV[1] == "1" then
		state = "admin_blocked"
	end

	redis.call("HSET", KEYS[1], "state", state, "version", version, "updated_at", ARGV[2])
	redis.call("HDEL", KEYS[1], "holder", "booking_id", "expires_at")
	redis.call("SADD", KEYS[2], ARGV[3])
	redis.call("SADD", KEYS[4], ARGV[4])

	redis.call("PUBLISH", KEYS[3], cjson.encode({
		trip_id = ARGV[4],
		seat_id = ARGV[3],
		op = "update",
		state = state,
		version = version,
	}))

	return "OK"
`)

// tripStateScript collects every reservation record for a trip in one round
// trip, flattened as [seatId, state, holder, bookingId, version, expiresAt].
var tripStateScript = redis.NewScript(`
	-- KEYS = [trip index set]
	-- ARGV = [seat key prefix]

	local out = {}
	local cursor = "0"

	repeat
		local res = redis.call("SSCAN", KEYS[1], cursor, "COUNT", 100)
		cursor = res[1]

		for _, seatId in ipairs(res[2]) do
			local vals = redis.call("HMGET", ARGV[1] .. seatId,
				"state", "holder", "booking_id", "version", "expires_at")

			table.insert(out, seatId)
			table.insert(out, vals[1] or "")
			table.insert(out, vals[2] or "")
			table.insert(out, vals[3] or "")
			table.insert(out, vals[4] or "0")
			table.insert(out, vals[5] or "0")
		end
	until cursor == "0"

	return out
`)

var sweepTripScript = redis.NewScript(`
	-- KEYS = [trip index set, change channel]
	-- ARGV = [nowUnix, tripId, seat key prefix]

	local now = tonumber(ARGV[1])
	local cursor = "0"
	local reverted = 0

	repeat
		local res = redis.call("SSCAN", KEYS[1], cursor, "COUNT", 100)
		cursor = res[1]

		for _, seatId in ipairs(res[2]) do
			local key = ARGV[3] .. seatId
			local state = redis.call("HGET", key, "state")
			local booking = redis.call("HGET", key, "booking_id")
			local expires = tonumber(redis.call("HGET", key, "expires_at") or "0")

			if state == "temp_held" and (not booking or booking == "") and expires > 0 and expires <= now then
				local version = tonumber(redis.call("HGET", key, "version") or "0") + 1

				redis.call("HSET", key, "state", "available", "version", version, "updated_at", now)
				redis.call("HDEL", key, "holder", "expires_at")

				redis.call("PUBLISH", KEYS[2], cjson.encode({
					trip_id = ARGV[2],
					seat_id = seatId,
					op = "update",
					state = "available",
					version = version,
				}))

				reverted = reverted + 1
			end
		end
	until cursor == "0"

	return reverted
`)
