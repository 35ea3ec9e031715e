// Package orbit maps Keplerian orbital elements to relative positions on the
// sky and solves for transit/occultation contact points.
//
// COORDINATE CONVENTION (fixed, used everywhere):
//
// The perifocal-plane position (r*cos(f), r*sin(f), 0) is rotated by
// R_z(Omega) * R_x(-i) * R_z(omega). In the resulting frame X points north,
// Y points east, and the ascending node is where the secondary recedes from
// the observer. omega is always the argument of periastron of the primary.
// Transit contacts are the intersection roots with Z < 0; Z >= 0 selects the
// occultation pair.
//
// CONTACT POINTS:
//
// Given L = R_star + R_planet, the contact condition couples the perifocal
// ellipse constraint with the projected-distance circle x2^2 + y2^2 = L^2.
// Eliminating y2 yields a closed-form quartic in x2, solved by
// companion-matrix eigenvalues plus a fixed Newton polish. The edge-on case
// cos(i) = 0 degenerates the quartic; x2 = +/-L is substituted directly and
// the remaining quadratic is solved per branch. A geometry that never
// intersects the limb reports ErrNoTransit - a normal outcome the caller is
// expected to handle, not a failure.
//
// All derivatives are exact: Jacobians chain through the closed-form kepler
// derivatives, never through finite differences.
package orbit
